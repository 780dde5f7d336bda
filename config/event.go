package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rios0rios0/reposync/domain"
)

// PushEvent is the triggering event for one run: the decoded push payload,
// or a synthetic manual event when no payload is available.
type PushEvent struct {
	Before  string
	Forced  bool
	Commits []domain.SourceCommit

	RepoFullName string // "owner/name" of the source repository
	RepoName     string
	RepoOwner    string
	RepoURL      string
	CloneURL     string

	RunURL string // workflow run that triggered the sync, for the PR footer
}

// pushPayload mirrors the fields of a GitHub push webhook document that the
// sync consumes.
type pushPayload struct {
	Before  string `json:"before"`
	Forced  bool   `json:"forced"`
	Commits []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"commits"`
	Repository struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
		CloneURL string `json:"clone_url"`
		Owner    struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// LoadEvent reads a push-event payload from path. An empty path falls back to
// GITHUB_EVENT_PATH; when neither names a readable file a manual event is
// built from the GITHUB_REPOSITORY environment (resolver rule: sync current
// HEAD only).
func LoadEvent(path string) (*PushEvent, error) {
	if path == "" {
		path = os.Getenv("GITHUB_EVENT_PATH")
	}

	if path == "" {
		return manualEvent()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return manualEvent()
		}
		return nil, fmt.Errorf("failed to read event payload %q: %w", path, err)
	}

	var payload pushPayload
	if unmarshalErr := json.Unmarshal(data, &payload); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", unmarshalErr)
	}

	ev := &PushEvent{
		Before:       payload.Before,
		Forced:       payload.Forced,
		RepoFullName: payload.Repository.FullName,
		RepoName:     payload.Repository.Name,
		RepoOwner:    payload.Repository.Owner.Login,
		RepoURL:      payload.Repository.HTMLURL,
		CloneURL:     payload.Repository.CloneURL,
		RunURL:       runURL(),
	}
	for _, c := range payload.Commits {
		ev.Commits = append(ev.Commits, domain.SourceCommit{SHA: c.ID, Message: c.Message})
	}

	if ev.RepoFullName == "" {
		return nil, fmt.Errorf("event payload %q carries no repository", path)
	}

	return ev, nil
}

// manualEvent builds the event for a manually triggered run: no commit list,
// no before ref, repository taken from the environment.
func manualEvent() (*PushEvent, error) {
	fullName := os.Getenv("GITHUB_REPOSITORY")
	if fullName == "" {
		return nil, fmt.Errorf("no event payload and GITHUB_REPOSITORY is not set")
	}

	owner, name, ok := strings.Cut(fullName, "/")
	if !ok {
		return nil, fmt.Errorf("GITHUB_REPOSITORY %q is not owner/name", fullName)
	}

	server := os.Getenv("GITHUB_SERVER_URL")
	if server == "" {
		server = "https://github.com"
	}

	return &PushEvent{
		RepoFullName: fullName,
		RepoName:     name,
		RepoOwner:    owner,
		RepoURL:      server + "/" + fullName,
		CloneURL:     server + "/" + fullName + ".git",
		RunURL:       runURL(),
	}, nil
}

func runURL() string {
	server := os.Getenv("GITHUB_SERVER_URL")
	repo := os.Getenv("GITHUB_REPOSITORY")
	runID := os.Getenv("GITHUB_RUN_ID")
	if server == "" || repo == "" || runID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/actions/runs/%s", server, repo, runID)
}
