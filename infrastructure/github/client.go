// Package github implements the repository host API on go-github: pull
// requests, git data (blobs, trees, commits, refs) and PR metadata, behind a
// rate-limit-aware HTTP client.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	"github.com/rios0rios0/reposync/domain"
)

const perPage = 100

// Client implements domain.HostClient for GitHub.
type Client struct {
	client     *gh.Client
	httpClient *http.Client
	graphqlURL string
}

// New creates a GitHub host client authenticated with token. All requests go
// through a retrying transport that honors rate-limit backoff.
func New(token string) *Client {
	retry := newRetryClient()
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   &retryablehttp.RoundTripper{Client: retry},
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}

	return &Client{
		client:     gh.NewClient(httpClient),
		httpClient: httpClient,
		graphqlURL: "https://api.github.com/graphql",
	}
}

// FindOpenPR returns the open pull request with the given head, its commits
// fetched eagerly, or nil when none exists.
func (c *Client) FindOpenPR(ctx context.Context, repo domain.RepoRef, head string) (*domain.ExistingPR, error) {
	prs, _, err := c.client.PullRequests.List(ctx, repo.Owner, repo.Name, &gh.PullRequestListOptions{
		Head:        head,
		State:       "open",
		ListOptions: gh.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for head %q: %w", head, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}

	pr := prs[0]
	existing := &domain.ExistingPR{
		Number:  pr.GetNumber(),
		NodeID:  pr.GetNodeID(),
		URL:     pr.GetHTMLURL(),
		Body:    pr.GetBody(),
		BaseSHA: pr.GetBase().GetSHA(),
	}

	opts := &gh.ListOptions{PerPage: perPage}
	for {
		commits, resp, listErr := c.client.PullRequests.ListCommits(
			ctx, repo.Owner, repo.Name, existing.Number, opts,
		)
		if listErr != nil {
			return nil, fmt.Errorf("failed to list commits of PR #%d: %w", existing.Number, listErr)
		}
		for _, commit := range commits {
			existing.Commits = append(existing.Commits, domain.PRCommit{
				SHA:     commit.GetSHA(),
				Message: commit.GetCommit().GetMessage(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return existing, nil
}

// CreatePR opens a new pull request.
func (c *Client) CreatePR(ctx context.Context, repo domain.RepoRef, input domain.PullRequestInput) (*domain.PullRequest, error) {
	pr, _, err := c.client.PullRequests.Create(ctx, repo.Owner, repo.Name, &gh.NewPullRequest{
		Title:               gh.String(input.Title),
		Head:                gh.String(input.Head),
		Base:                gh.String(input.Base),
		Body:                gh.String(input.Body),
		MaintainerCanModify: gh.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}
	return toPullRequest(pr), nil
}

// UpdatePR patches title and body of an existing pull request.
func (c *Client) UpdatePR(ctx context.Context, repo domain.RepoRef, number int, title, body string) (*domain.PullRequest, error) {
	pr, _, err := c.client.PullRequests.Edit(ctx, repo.Owner, repo.Name, number, &gh.PullRequest{
		Title: gh.String(title),
		Body:  gh.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update pull request #%d: %w", number, err)
	}
	return toPullRequest(pr), nil
}

// UpdatePRBody patches only the body of an existing pull request.
func (c *Client) UpdatePRBody(ctx context.Context, repo domain.RepoRef, number int, body string) error {
	_, _, err := c.client.PullRequests.Edit(ctx, repo.Owner, repo.Name, number, &gh.PullRequest{
		Body: gh.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to update body of pull request #%d: %w", number, err)
	}
	return nil
}

// BranchSHA returns the sha a branch ref points at.
func (c *Client) BranchSHA(ctx context.Context, repo domain.RepoRef, branch string) (string, error) {
	ref, _, err := c.client.Git.GetRef(ctx, repo.Owner, repo.Name, "refs/heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("failed to get ref of branch %q: %w", branch, err)
	}
	return ref.Object.GetSHA(), nil
}

// EnsureBranch creates the branch ref at sha. A 422 response means the ref
// already exists and is swallowed so branch creation stays idempotent;
// anything else propagates.
func (c *Client) EnsureBranch(ctx context.Context, repo domain.RepoRef, branch, sha string) error {
	refName := "refs/heads/" + branch
	_, _, err := c.client.Git.CreateRef(ctx, repo.Owner, repo.Name, &gh.Reference{
		Ref:    gh.String(refName),
		Object: &gh.GitObject{SHA: gh.String(sha)},
	})
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil &&
			ghErr.Response.StatusCode == http.StatusUnprocessableEntity {
			return nil
		}
		return fmt.Errorf("failed to create branch %q: %w", branch, err)
	}
	return nil
}

// ForceUpdateBranch force-moves the branch ref to sha.
func (c *Client) ForceUpdateBranch(ctx context.Context, repo domain.RepoRef, branch, sha string) error {
	_, _, err := c.client.Git.UpdateRef(ctx, repo.Owner, repo.Name, &gh.Reference{
		Ref:    gh.String("refs/heads/" + branch),
		Object: &gh.GitObject{SHA: gh.String(sha)},
	}, true)
	if err != nil {
		return fmt.Errorf("failed to force-update branch %q: %w", branch, err)
	}
	return nil
}

// CreateBlob uploads raw content and returns the blob sha.
func (c *Client) CreateBlob(ctx context.Context, repo domain.RepoRef, content []byte) (string, error) {
	blob, _, err := c.client.Git.CreateBlob(ctx, repo.Owner, repo.Name, &gh.Blob{
		Content:  gh.String(base64.StdEncoding.EncodeToString(content)),
		Encoding: gh.String("base64"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	return blob.GetSHA(), nil
}

// CreateTree creates a tree object from the full entry list.
func (c *Client) CreateTree(ctx context.Context, repo domain.RepoRef, entries []domain.GitTreeEntry) (string, error) {
	treeEntries := make([]*gh.TreeEntry, 0, len(entries))
	for _, e := range entries {
		treeEntries = append(treeEntries, &gh.TreeEntry{
			Path: gh.String(e.Path),
			Mode: gh.String(e.Mode),
			Type: gh.String(e.Type),
			SHA:  gh.String(e.SHA),
		})
	}

	tree, _, err := c.client.Git.CreateTree(ctx, repo.Owner, repo.Name, "", treeEntries)
	if err != nil {
		return "", fmt.Errorf("failed to create tree: %w", err)
	}
	return tree.GetSHA(), nil
}

// CreateCommit creates a commit object with a single parent.
func (c *Client) CreateCommit(ctx context.Context, repo domain.RepoRef, message, treeSHA, parentSHA string) (string, error) {
	commit, _, err := c.client.Git.CreateCommit(ctx, repo.Owner, repo.Name, &gh.Commit{
		Message: gh.String(message),
		Tree:    &gh.Tree{SHA: gh.String(treeSHA)},
		Parents: []*gh.Commit{{SHA: gh.String(parentSHA)}},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create commit: %w", err)
	}
	return commit.GetSHA(), nil
}

// AddLabels adds labels to the pull request.
func (c *Client) AddLabels(ctx context.Context, repo domain.RepoRef, number int, labels []string) error {
	_, _, err := c.client.Issues.AddLabelsToIssue(ctx, repo.Owner, repo.Name, number, labels)
	if err != nil {
		return fmt.Errorf("failed to add labels to #%d: %w", number, err)
	}
	return nil
}

// AddAssignees assigns users to the pull request.
func (c *Client) AddAssignees(ctx context.Context, repo domain.RepoRef, number int, assignees []string) error {
	_, _, err := c.client.Issues.AddAssignees(ctx, repo.Owner, repo.Name, number, assignees)
	if err != nil {
		return fmt.Errorf("failed to add assignees to #%d: %w", number, err)
	}
	return nil
}

// RequestReviewers requests user and team reviews on the pull request.
func (c *Client) RequestReviewers(ctx context.Context, repo domain.RepoRef, number int, users, teams []string) error {
	_, _, err := c.client.PullRequests.RequestReviewers(ctx, repo.Owner, repo.Name, number, gh.ReviewersRequest{
		Reviewers:     users,
		TeamReviewers: teams,
	})
	if err != nil {
		return fmt.Errorf("failed to request reviewers on #%d: %w", number, err)
	}
	return nil
}

// EnableAutoMerge enables auto-merge on a pull request. This is the single
// GraphQL call in the system; go-github does not cover the mutation.
func (c *Client) EnableAutoMerge(ctx context.Context, prNodeID, method string) error {
	mergeMethod := strings.ToUpper(method)
	switch mergeMethod {
	case "MERGE", "SQUASH", "REBASE":
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedMergeMethod, method)
	}

	payload := map[string]any{
		"query": `mutation($pullRequestId: ID!, $mergeMethod: PullRequestMergeMethod!) {
			enablePullRequestAutoMerge(input: {pullRequestId: $pullRequestId, mergeMethod: $mergeMethod}) {
				pullRequest { number }
			}
		}`,
		"variables": map[string]any{
			"pullRequestId": prNodeID,
			"mergeMethod":   mergeMethod,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode auto-merge mutation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build auto-merge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to enable auto-merge: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auto-merge mutation returned %d: %s", resp.StatusCode, raw)
	}

	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if unmarshalErr := json.Unmarshal(raw, &result); unmarshalErr == nil && len(result.Errors) > 0 {
		return fmt.Errorf("auto-merge mutation failed: %s", result.Errors[0].Message)
	}

	return nil
}

func toPullRequest(pr *gh.PullRequest) *domain.PullRequest {
	return &domain.PullRequest{
		Number: pr.GetNumber(),
		NodeID: pr.GetNodeID(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
	}
}
