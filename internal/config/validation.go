package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidateConfig validates a configuration after defaults were applied.
func ValidateConfig(cfg *Config) error {
	if err := validateAPI(&cfg.API); err != nil {
		return err
	}
	if err := validatePacks(cfg.StarterPacks); err != nil {
		return err
	}
	return nil
}

func validateAPI(api *APIConfig) error {
	endpoints := map[string]string{
		"active_challenges_url":    api.ActiveChallengesURL,
		"challenge_details_url":    api.ChallengeDetailsURL,
		"registration_url":         api.RegistrationURL,
		"member_challenges_url":    api.MemberChallengesURL,
		"member_submissions_url":   api.MemberSubmissionsURL,
		"submission_artifacts_url": api.SubmissionArtifactsURL,
		"artifact_download_url":    api.ArtifactDownloadURL,
		"submission_upload_url":    api.SubmissionUploadURL,
	}
	for name, raw := range endpoints {
		if err := validateEndpoint(raw); err != nil {
			return fmt.Errorf("api.%s: %w", name, err)
		}
	}
	if _, err := time.ParseDuration(api.Timeout); err != nil {
		return fmt.Errorf("api.timeout: %w", err)
	}
	if NormalizeRetryBackoff(string(api.Retry.Backoff)) == "" {
		return fmt.Errorf("api.retry.backoff: unknown mode %q", api.Retry.Backoff)
	}
	for name, raw := range map[string]string{"initial_delay": api.Retry.InitialDelay, "max_delay": api.Retry.MaxDelay} {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("api.retry.%s: %w", name, err)
		}
	}
	return nil
}

// validateEndpoint checks that a URL template is absolute once placeholders
// are substituted.
func validateEndpoint(raw string) error {
	probe := strings.NewReplacer("{challengeId}", "1", "{memberId}", "1", "{submissionId}", "1", "{artifactId}", "1").Replace(raw)
	u, err := url.Parse(probe)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func validatePacks(packs []PackConfig) error {
	for i, p := range packs {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("starter_packs[%d]: name is required", i)
		}
		for j, r := range p.Repos {
			if r.Title == "" || r.URL == "" {
				return fmt.Errorf("starter_packs[%d].repos[%d]: title and url are required", i, j)
			}
		}
	}
	return nil
}
