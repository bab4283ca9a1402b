package types

import (
	"github.com/killallgit/meeting-recorder/internal/database"
	"github.com/killallgit/meeting-recorder/internal/services/analysis"
	"github.com/killallgit/meeting-recorder/internal/services/auth"
	"github.com/killallgit/meeting-recorder/internal/services/jobs"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/internal/services/webhook"
	"github.com/killallgit/meeting-recorder/internal/services/workers"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB               *database.DB
	WebhookVerifier  *webhook.Verifier
	WebhookRouter    *webhook.Router
	AuthService      *auth.Service
	RecordingService recordings.Service
	AnalysisService  analysis.Service
	JobService       jobs.Service
	WorkerPool       *workers.WorkerPool
	Version          VersionInfo
}

// VersionInfo is the build metadata reported by /version
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}
