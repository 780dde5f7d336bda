// Package application orchestrates the sync: one session per destination
// repository, replaying source commits onto a working branch and reconciling
// the pull request that represents the sync relationship.
package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/reposync/config"
	"github.com/rios0rios0/reposync/domain"
)

// Service runs the full sync cycle over every configured destination
// repository. Repositories are processed sequentially; each session owns its
// working directory for its whole lifetime.
type Service struct {
	cfg       *config.Config
	git       domain.GitClient
	host      domain.HostClient
	publisher domain.Publisher
	app       *Applicator
	dryRun    bool
}

// NewService wires the sync service.
func NewService(
	cfg *config.Config,
	git domain.GitClient,
	host domain.HostClient,
	publisher domain.Publisher,
	fs domain.FileSyncer,
) *Service {
	return &Service{
		cfg:       cfg,
		git:       git,
		host:      host,
		publisher: publisher,
		app:       NewApplicator(fs, git),
	}
}

// SetDryRun makes the service stop before publishing or touching pull
// requests.
func (s *Service) SetDryRun(dryRun bool) {
	s.dryRun = dryRun
}

// Run processes every configured destination repository for the given
// triggering event. It returns the pull request URLs of the repositories
// that received changes. A failed session is logged and does not stop the
// remaining repositories, but marks the whole run as failed.
func (s *Service) Run(ctx context.Context, ev *config.PushEvent) ([]string, error) {
	targets, err := s.cfg.Targets()
	if err != nil {
		return nil, err
	}

	tmpRoot, err := os.MkdirTemp("", "reposync-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer func() {
		if removeErr := os.RemoveAll(tmpRoot); removeErr != nil {
			logger.Warnf("Failed to clean up %q: %v", tmpRoot, removeErr)
		}
	}()

	srcDir := filepath.Join(tmpRoot, "source")
	if cloneErr := s.git.Clone(ctx, s.authURL(sourceCloneURL(ev)), srcDir, cloneDepth(ev)); cloneErr != nil {
		return nil, fmt.Errorf("failed to clone source repository %s: %w", ev.RepoFullName, cloneErr)
	}

	var urls []string
	failures := 0
	for _, target := range targets {
		url, syncErr := s.processRepository(ctx, target, ev, srcDir, tmpRoot)
		if syncErr != nil {
			logger.Errorf("Failed to sync %s: %v", target.Repo.UniqueKey, syncErr)
			failures++
			continue
		}
		if url != "" {
			urls = append(urls, url)
		}
	}

	if failures > 0 {
		return urls, fmt.Errorf("%d of %d repositories failed to sync", failures, len(targets))
	}
	return urls, nil
}

// processRepository runs one full sync session and returns the pull request
// URL when the repository received changes.
func (s *Service) processRepository(
	ctx context.Context,
	target config.SyncTarget,
	ev *config.PushEvent,
	srcDir, tmpRoot string,
) (string, error) {
	repo := target.Repo
	logger.Infof("Syncing %s", repo.UniqueKey)

	destDir := filepath.Join(tmpRoot, strings.ReplaceAll(repo.UniqueKey, "/", "-"))
	cloneURL := s.authURL(repo.HTMLURL() + ".git")
	if err := s.git.Clone(ctx, cloneURL, destDir, cloneDepth(ev)); err != nil {
		return "", fmt.Errorf("failed to clone destination: %w", err)
	}

	baseBranch := repo.Branch
	if baseBranch == "" {
		branch, err := s.git.CurrentBranch(destDir)
		if err != nil {
			return "", err
		}
		baseBranch = branch
	} else {
		if _, err := s.git.CheckoutTarget(destDir, baseBranch); err != nil {
			return "", err
		}
	}

	prBranch := domain.BranchName(
		s.cfg.PR.BranchPrefix, ev.RepoName, repo.Branch,
		s.cfg.PR.OverwriteEnabled(), time.Now(),
	)

	headOwner := repo.Owner
	if s.cfg.Fork != "" {
		headOwner = s.cfg.Fork
	}

	existing, err := s.host.FindOpenPR(ctx, repo, headOwner+":"+prBranch)
	if err != nil {
		return "", err
	}
	if existing != nil {
		logger.Infof("Found open PR #%d for %s", existing.Number, prBranch)
	}

	startSHA, err := s.git.CheckoutBranch(destDir, prBranch)
	if err != nil {
		return "", err
	}

	session := &domain.SyncSession{
		Repo:          repo,
		WorkingDir:    destDir,
		SourceDir:     srcDir,
		BaseBranch:    baseBranch,
		PRBranch:      prBranch,
		LastCommitSHA: startSHA,
		ExistingPR:    existing,
	}

	if existing != nil && !s.dryRun {
		if bannerErr := s.setBanner(ctx, session, true); bannerErr != nil {
			return "", bannerErr
		}
	}

	commits, err := resolveCommitSet(ctx, s.git, session, ev)
	if err != nil {
		return "", err
	}

	replayed, err := s.replay(session, target.Rules, commits, ev)
	if err != nil {
		return "", err
	}

	if len(replayed) == 0 {
		logger.Infof("%s is already up to date", repo.UniqueKey)
		if existing != nil && !s.dryRun {
			if bannerErr := s.setBanner(ctx, session, false); bannerErr != nil {
				return "", bannerErr
			}
		}
		return "", nil
	}

	if s.dryRun {
		logger.Infof("[DRY RUN] Would publish %d commit(s) to %s and reconcile the PR", len(replayed), prBranch)
		return "", nil
	}

	if publishErr := s.publisher.Publish(ctx, session); publishErr != nil {
		return "", publishErr
	}

	pr, err := s.reconcilePR(ctx, session, ev, replayed)
	if err != nil {
		return "", err
	}

	s.applyMetadata(ctx, repo, pr)

	logger.Infof("Synced %s: %s", repo.UniqueKey, pr.URL)
	return pr.URL, nil
}

// replay checks out each source commit in turn, applies every file rule and
// records a destination commit when the worktree changed. It returns the
// messages of the destination commits created, already rewritten.
func (s *Service) replay(
	session *domain.SyncSession,
	rules []domain.FileRule,
	commits []domain.SourceCommit,
	ev *config.PushEvent,
) ([]string, error) {
	data := TemplateData{
		Repo:   session.Repo,
		Source: ev.RepoFullName,
		Vars:   s.cfg.Vars,
	}

	var messages []string
	for _, commit := range commits {
		if err := s.git.CheckoutCommit(session.SourceDir, commit.SHA); err != nil {
			return nil, err
		}

		for _, rule := range rules {
			// Failures inside one rule do not abort the session.
			if applyErr := s.app.Apply(rule, session.SourceDir, session.WorkingDir, data); applyErr != nil {
				logger.Warnf("Rule %q failed on commit %.7s: %v", rule.Source, commit.SHA, applyErr)
			}
		}

		dirty, err := s.git.IsDirty(session.WorkingDir)
		if err != nil {
			return nil, err
		}
		if !dirty {
			logger.Infof("Commit %.7s produced no changes", commit.SHA)
			continue
		}

		message := domain.RewriteIssueRefs(commit.Message, ev.RepoURL)
		if _, commitErr := s.git.Commit(session.WorkingDir, message); commitErr != nil {
			return nil, commitErr
		}
		messages = append(messages, message)
	}

	return messages, nil
}

// reconcilePR updates the existing pull request or creates a new one, with
// title and body aggregated from the selected commit messages and the hidden
// before-ref anchor persisted in the body.
func (s *Service) reconcilePR(
	ctx context.Context,
	session *domain.SyncSession,
	ev *config.PushEvent,
	replayed []string,
) (*domain.PullRequest, error) {
	payload := make([]string, 0, len(ev.Commits))
	for _, c := range ev.Commits {
		payload = append(payload, domain.RewriteIssueRefs(c.Message, ev.RepoURL))
	}

	messages := domain.SelectMessages(ev.Forced, session.ExistingPR, replayed, payload)

	// The anchor marks where this sync relationship started; an existing PR
	// keeps its anchor, a new PR starts at the event's before ref.
	anchor := ev.Before
	if session.ExistingPR != nil {
		if existingAnchor, err := domain.ExtractAnchor(session.ExistingPR.Body); err == nil {
			anchor = existingAnchor
		}
	}

	title := s.cfg.PR.Title
	if title == "" {
		title = domain.BuildTitle(messages)
	}
	body := domain.BuildBody(messages, ev.RepoFullName, anchor, ev.RunURL)

	if session.ExistingPR != nil {
		pr, err := s.host.UpdatePR(ctx, session.Repo, session.ExistingPR.Number, title, body)
		if err != nil {
			return nil, err
		}
		return pr, nil
	}

	headOwner := session.Repo.Owner
	if s.cfg.Fork != "" {
		headOwner = s.cfg.Fork
	}

	pr, err := s.host.CreatePR(ctx, session.Repo, domain.PullRequestInput{
		Head:  headOwner + ":" + session.PRBranch,
		Base:  session.BaseBranch,
		Title: title,
		Body:  body,
	})
	if err != nil {
		return nil, err
	}

	session.ExistingPR = &domain.ExistingPR{
		Number: pr.Number,
		NodeID: pr.NodeID,
		URL:    pr.URL,
		Body:   body,
	}
	return pr, nil
}

// applyMetadata applies labels, assignees, reviewers and auto-merge to the
// pull request. Each step is best-effort: a failure degrades to a warning.
// Under a fork workflow the acting token typically lacks permission on the
// forked head, so everything is skipped.
func (s *Service) applyMetadata(ctx context.Context, repo domain.RepoRef, pr *domain.PullRequest) {
	if s.cfg.Fork != "" {
		logger.Debugf("Fork workflow active, skipping PR metadata")
		return
	}

	prCfg := s.cfg.PR
	if len(prCfg.Labels) > 0 {
		if err := s.host.AddLabels(ctx, repo, pr.Number, prCfg.Labels); err != nil {
			logger.Warnf("Failed to add labels: %v", err)
		}
	}
	if len(prCfg.Assignees) > 0 {
		if err := s.host.AddAssignees(ctx, repo, pr.Number, prCfg.Assignees); err != nil {
			logger.Warnf("Failed to add assignees: %v", err)
		}
	}
	if len(prCfg.Reviewers) > 0 || len(prCfg.TeamReviewers) > 0 {
		if err := s.host.RequestReviewers(ctx, repo, pr.Number, prCfg.Reviewers, prCfg.TeamReviewers); err != nil {
			logger.Warnf("Failed to request reviewers: %v", err)
		}
	}
	if prCfg.AutoMerge != "" {
		if err := s.host.EnableAutoMerge(ctx, pr.NodeID, prCfg.AutoMerge); err != nil {
			logger.Warnf("Failed to enable auto-merge: %v", err)
		}
	}
}

// setBanner adds or removes the in-progress warning banner on the existing
// pull request, leaving the rest of the body verbatim.
func (s *Service) setBanner(ctx context.Context, session *domain.SyncSession, add bool) error {
	pr := session.ExistingPR

	updated := domain.RemoveWarningBanner(pr.Body)
	if add {
		updated = domain.AddWarningBanner(pr.Body)
	}
	if updated == pr.Body {
		return nil
	}

	if err := s.host.UpdatePRBody(ctx, session.Repo, pr.Number, updated); err != nil {
		return fmt.Errorf("failed to update PR #%d body: %w", pr.Number, err)
	}
	pr.Body = updated
	return nil
}

// authURL embeds the configured token into an HTTPS clone URL.
func (s *Service) authURL(url string) string {
	return strings.Replace(url, "https://", "https://x-access-token:"+s.cfg.Token+"@", 1)
}

func sourceCloneURL(ev *config.PushEvent) string {
	if ev.CloneURL != "" {
		return ev.CloneURL
	}
	return ev.RepoURL + ".git"
}

// cloneDepth keeps initial clones shallow: the payload commits plus one, so
// the parent of the oldest payload commit is reachable. A forced replay
// deepens further as needed.
func cloneDepth(ev *config.PushEvent) int {
	return len(ev.Commits) + 1
}
