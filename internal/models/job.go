package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// JobOptions controls which optional stages run for a job. Translation
// defaults to on; clinical extraction defaults to off, matching the
// command-line tool's historical defaults.
type JobOptions struct {
	SkipTranslation bool `json:"skip_translation"`
	SkipExtraction  bool `json:"skip_clinical"`
	LangHint        string `json:"lang_hint,omitempty"`
}

// DefaultJobOptions returns the default options: translation runs,
// extraction is skipped.
func DefaultJobOptions() JobOptions {
	return JobOptions{SkipTranslation: false, SkipExtraction: true, LangHint: "auto"}
}

// Job is a single unit of pipeline work.
type Job struct {
	JobID    string
	AudioRef AudioRef
	Options  JobOptions
	Status   JobStatus
}

// StageArtifacts records the on-disk paths written by the pipeline executor
// for one job, mirroring the fixed output directory tree.
type StageArtifacts struct {
	RawTranscriptPath  string `json:"raw_transcript_path,omitempty"`
	LeanTranscriptPath string `json:"lean_transcript_path,omitempty"`
	TranslatedPath     string `json:"translated_path,omitempty"`
	ClinicalPath       string `json:"clinical_path,omitempty"`
}

// JobRecord is the GORM-persisted row for a Job, the durable half of the
// in-memory Job value. One row per job, written when the run starts and
// updated when it finishes, so an observer can poll its status through the
// admin surface.
type JobRecord struct {
	JobID        string    `json:"job_id" gorm:"primaryKey;type:varchar(36)"`
	Status       JobStatus `json:"status" gorm:"type:varchar(20);not null;default:'queued'"`
	AudioRefJSON string    `json:"-" gorm:"column:audio_ref;type:text;not null"`
	OptionsJSON  string    `json:"-" gorm:"column:options;type:text"`
	ArtifactsJSON string   `json:"-" gorm:"column:artifacts;type:text"`
	ErrorMessage *string   `json:"error_message,omitempty" gorm:"type:text"`
	FailedStage  *string   `json:"failed_stage,omitempty" gorm:"type:varchar(32)"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName pins the table name rather than relying on GORM's pluralizer.
func (JobRecord) TableName() string {
	return "jobs"
}

// BeforeCreate assigns a job id when the caller left it blank.
func (j *JobRecord) BeforeCreate(tx *gorm.DB) error {
	if j.JobID == "" {
		j.JobID = uuid.New().String()
	}
	return nil
}

// SetArtifacts serializes the stage artifact paths into the record.
func (j *JobRecord) SetArtifacts(a StageArtifacts) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	j.ArtifactsJSON = string(b)
	return nil
}

// Artifacts deserializes the stage artifact paths from the record.
func (j *JobRecord) Artifacts() (StageArtifacts, error) {
	var a StageArtifacts
	if j.ArtifactsJSON == "" {
		return a, nil
	}
	err := json.Unmarshal([]byte(j.ArtifactsJSON), &a)
	return a, err
}

// SetOptions serializes job options into the record.
func (j *JobRecord) SetOptions(o JobOptions) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	j.OptionsJSON = string(b)
	return nil
}

// Options deserializes job options from the record.
func (j *JobRecord) Options() (JobOptions, error) {
	opts := DefaultJobOptions()
	if j.OptionsJSON == "" {
		return opts, nil
	}
	err := json.Unmarshal([]byte(j.OptionsJSON), &opts)
	return opts, err
}
