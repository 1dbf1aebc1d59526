package config

import "path/filepath"

// Default endpoints of the public challenge platform.
const (
	DefaultActiveChallengesURL    = "https://api.topcoder.com/v4/challenges?filter=status%3DACTIVE"
	DefaultChallengeDetailsURL    = "https://api.topcoder.com/v4/challenges/{challengeId}"
	DefaultRegistrationURL        = "https://api.topcoder.com/v4/challenges/{challengeId}/register"
	DefaultMemberChallengesURL    = "https://api.topcoder.com/v4/members/{memberId}/challenges"
	DefaultMemberSubmissionsURL   = "https://api.topcoder.com/v5/submissions?challengeId={challengeId}&memberId={memberId}"
	DefaultSubmissionArtifactsURL = "https://api.topcoder.com/v5/submissions/{submissionId}/artifacts"
	DefaultArtifactDownloadURL    = "https://api.topcoder.com/v5/submissions/{submissionId}/artifacts/{artifactId}/download"
	DefaultSubmissionUploadURL    = "https://api.topcoder.com/v5/submissions"
	DefaultTimeout                = "30s"
)

// applyDefaults fills every empty field with its default. It never overrides
// values that were set explicitly.
func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	applyAPIDefaults(&cfg.API)

	if cfg.Auth.TokenFile == "" {
		cfg.Auth.TokenFile = filepath.Join(DefaultDir(), "token")
	}
	if cfg.Auth.TokenEnv == "" {
		cfg.Auth.TokenEnv = EnvTokenVar
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(DefaultDir(), "history.db")
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

func applyAPIDefaults(api *APIConfig) {
	setDefault(&api.ActiveChallengesURL, DefaultActiveChallengesURL)
	setDefault(&api.ChallengeDetailsURL, DefaultChallengeDetailsURL)
	setDefault(&api.RegistrationURL, DefaultRegistrationURL)
	setDefault(&api.MemberChallengesURL, DefaultMemberChallengesURL)
	setDefault(&api.MemberSubmissionsURL, DefaultMemberSubmissionsURL)
	setDefault(&api.SubmissionArtifactsURL, DefaultSubmissionArtifactsURL)
	setDefault(&api.ArtifactDownloadURL, DefaultArtifactDownloadURL)
	setDefault(&api.SubmissionUploadURL, DefaultSubmissionUploadURL)
	setDefault(&api.Timeout, DefaultTimeout)

	// 0 means "unset"; a negative value disables retries.
	if api.Retry.MaxRetries == 0 {
		api.Retry.MaxRetries = 2
	}
	if api.Retry.Backoff == "" {
		api.Retry.Backoff = RetryBackoffExponential
	} else if m := NormalizeRetryBackoff(string(api.Retry.Backoff)); m != "" {
		api.Retry.Backoff = m
	}
	setDefault(&api.Retry.InitialDelay, "500ms")
	setDefault(&api.Retry.MaxDelay, "5s")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
