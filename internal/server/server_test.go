package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pipeline/internal/models"
	"pipeline/internal/pipeline"
	"pipeline/internal/repository"
)

func newTestServer() *Server {
	exec := pipeline.New(".")
	return New(exec, models.NewWorkerRegistry())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.JobRecord{}))
	return db
}

func readLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(buf.String()))
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestServer_HealthRespondsBeforeLoaderFinishes(t *testing.T) {
	s := newTestServer()
	var out bytes.Buffer

	err := s.Serve(context.Background(), strings.NewReader(`{"cmd":"health"}`+"\n"), &out)
	require.NoError(t, err)

	lines := readLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, "ok", lines[0]["status"])
	assert.Equal(t, false, lines[0]["ready"])
}

func TestServer_UnknownCommand(t *testing.T) {
	s := newTestServer()
	var out bytes.Buffer

	err := s.Serve(context.Background(), strings.NewReader(`{"cmd":"frobnicate"}`+"\n"), &out)
	require.NoError(t, err)

	lines := readLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["status"])
	assert.Equal(t, "Unknown command: frobnicate", lines[0]["error"])
}

func TestServer_MalformedRequestDoesNotStopTheLoop(t *testing.T) {
	s := newTestServer()
	var out bytes.Buffer

	input := "not json\n" + `{"cmd":"health"}` + "\n"
	err := s.Serve(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	lines := readLines(t, &out)
	require.Len(t, lines, 2)
	assert.Equal(t, "error", lines[0]["status"])
	assert.Equal(t, "ok", lines[1]["status"])
}

func TestServer_RunWithoutAudioFailsWithJobID(t *testing.T) {
	s := newTestServer()
	var out bytes.Buffer

	err := s.Serve(context.Background(), strings.NewReader(`{"cmd":"run"}`+"\n"), &out)
	require.NoError(t, err)

	lines := readLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, "failed", lines[0]["status"])
	assert.NotEmpty(t, lines[0]["job_id"])
}

func TestServer_RunFailsCleanlyWithNoResolverConfigured(t *testing.T) {
	s := newTestServer()
	var out bytes.Buffer

	req := `{"cmd":"run","job_id":"job-123","audio_path":"/tmp/does-not-matter.wav"}` + "\n"
	err := s.Serve(context.Background(), strings.NewReader(req), &out)
	require.NoError(t, err)

	lines := readLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, "failed", lines[0]["status"])
	assert.Equal(t, "job-123", lines[0]["job_id"])
	assert.NotEmpty(t, lines[0]["trace"])
}

func TestServer_RunPersistsJobRecordAcrossAttemptAndFailure(t *testing.T) {
	s := newTestServer()
	s.Jobs = repository.NewJobRepository(newTestDB(t))
	var out bytes.Buffer

	req := `{"cmd":"run","job_id":"job-456","audio_path":"/tmp/does-not-matter.wav"}` + "\n"
	err := s.Serve(context.Background(), strings.NewReader(req), &out)
	require.NoError(t, err)

	record, err := s.Jobs.FindByID(context.Background(), "job-456")
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, record.Status)
	require.NotNil(t, record.FailedStage)
	assert.Equal(t, "resolve", *record.FailedStage)
}

func TestServer_BackgroundLoaderClosesReadyAndEmitsEvent(t *testing.T) {
	s := newTestServer()
	s.RegisterLoader("resolver", func(ctx context.Context) error { return nil })

	var out bytes.Buffer
	s.StartBackgroundLoader(context.Background(), &out)

	select {
	case <-s.Registry.Ready:
	case <-time.After(2 * time.Second):
		t.Fatal("loader did not close Ready in time")
	}

	loaded, errs := s.Registry.Snapshot()
	assert.True(t, loaded["resolver"])
	assert.Empty(t, errs)

	lines := readLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, "ready", lines[0]["event"])
}

func TestAudioRefFromRequest(t *testing.T) {
	ref, err := audioRefFromRequest(request{AudioPath: "/tmp/a.wav"})
	require.NoError(t, err)
	assert.Equal(t, models.AudioRefLocalPath, ref.Kind)

	ref, err = audioRefFromRequest(request{AudioS3Path: "s3://bucket/key.wav"})
	require.NoError(t, err)
	assert.Equal(t, models.AudioRefRemoteURI, ref.Kind)
	assert.Equal(t, "bucket", ref.Bucket)

	ref, err = audioRefFromRequest(request{AudioS3Path: "bare-key.wav"})
	require.NoError(t, err)
	assert.Equal(t, models.AudioRefBareKey, ref.Kind)

	_, err = audioRefFromRequest(request{})
	assert.Error(t, err)
}
