// Package github implements the GitHub source connector. It walks an
// organisation's repositories and emits readmes, pull requests and
// batched commit messages as raw items.
package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.SourceConnector = (*Connector)(nil)

// Default configuration values.
const (
	DefaultRepoLimit       = 5
	DefaultPRLimit         = 30
	DefaultCommitLimit     = 50
	DefaultCommitBatchSize = 5
	DefaultTimeout         = 30 * time.Second
)

// Config holds configuration for the GitHub connector.
type Config struct {
	// Token is the personal access token or OAuth token (required).
	Token string

	// Org is the organisation to ingest (required).
	Org string

	// RepoLimit caps how many repositories one run walks.
	RepoLimit int

	// PRLimit caps pull requests fetched per repository.
	PRLimit int

	// CommitBatchSize is how many commit messages share one document.
	CommitBatchSize int
}

// Connector streams GitHub content as raw items.
type Connector struct {
	client  *gh.Client
	limiter *rateLimiter
	cfg     Config
}

// NewConnector creates a GitHub connector.
func NewConnector(cfg Config) (*Connector, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github: token is required")
	}
	if cfg.Org == "" {
		return nil, fmt.Errorf("github: organisation is required")
	}
	if cfg.RepoLimit <= 0 {
		cfg.RepoLimit = DefaultRepoLimit
	}
	if cfg.PRLimit <= 0 {
		cfg.PRLimit = DefaultPRLimit
	}
	if cfg.CommitBatchSize <= 0 {
		cfg.CommitBatchSize = DefaultCommitBatchSize
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultTimeout

	return &Connector{
		client:  gh.NewClient(tc),
		limiter: newRateLimiter(),
		cfg:     cfg,
	}, nil
}

// Source returns the source tag.
func (c *Connector) Source() string {
	return domain.SourceGitHub
}

// Validate confirms the token works and the organisation is reachable.
func (c *Connector) Validate(ctx context.Context) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}
	_, resp, err := c.client.Organizations.Get(ctx, c.cfg.Org)
	if resp != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		return fmt.Errorf("github: organisation %s: %w", c.cfg.Org, err)
	}
	return nil
}

// Items streams readme, pull request and commit items for the
// organisation's repositories. A failure confined to one repository is
// reported on the error channel and the walk continues.
func (c *Connector) Items(ctx context.Context) (<-chan domain.RawItem, <-chan error) {
	items := make(chan domain.RawItem)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)

		repos, err := c.listRepos(ctx)
		if err != nil {
			sendErr(ctx, errs, fmt.Errorf("list repos for %s: %w", c.cfg.Org, err))
			return
		}

		for _, repo := range repos {
			name := repo.GetName()
			logger.Info("Walking repository %s", name)

			if err := c.emitReadme(ctx, name, items); err != nil {
				sendErr(ctx, errs, fmt.Errorf("repo %s: readme: %w", name, err))
			}
			if err := c.emitPulls(ctx, name, items); err != nil {
				sendErr(ctx, errs, fmt.Errorf("repo %s: pulls: %w", name, err))
			}
			if err := c.emitCommits(ctx, name, items); err != nil {
				sendErr(ctx, errs, fmt.Errorf("repo %s: commits: %w", name, err))
			}

			if ctx.Err() != nil {
				return
			}
		}
	}()

	return items, errs
}

// Close releases resources (no-op for HTTP-based API).
func (c *Connector) Close() error {
	return nil
}

func (c *Connector) listRepos(ctx context.Context) ([]*gh.Repository, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	opts := &gh.RepositoryListByOrgOptions{
		ListOptions: gh.ListOptions{PerPage: c.cfg.RepoLimit},
	}
	repos, resp, err := c.client.Repositories.ListByOrg(ctx, c.cfg.Org, opts)
	if resp != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		return nil, err
	}
	if len(repos) > c.cfg.RepoLimit {
		repos = repos[:c.cfg.RepoLimit]
	}
	return repos, nil
}

func (c *Connector) emitReadme(ctx context.Context, repo string, items chan<- domain.RawItem) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}

	readme, resp, err := c.client.Repositories.GetReadme(ctx, c.cfg.Org, repo, nil)
	if resp != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			// A repository without a readme is not an error.
			return nil
		}
		return err
	}

	content, err := readme.GetContent()
	if err != nil {
		return fmt.Errorf("decode readme: %w", err)
	}

	return send(ctx, items, ReadmeItem(c.cfg.Org, repo, content))
}

func (c *Connector) emitPulls(ctx context.Context, repo string, items chan<- domain.RawItem) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}

	opts := &gh.PullRequestListOptions{
		State:       "all",
		ListOptions: gh.ListOptions{PerPage: c.cfg.PRLimit},
	}
	pulls, resp, err := c.client.PullRequests.List(ctx, c.cfg.Org, repo, opts)
	if resp != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		return err
	}

	for _, pr := range pulls {
		item := PullRequestItem(repo, pr.GetNumber(), pr.GetTitle(), pr.GetBody(),
			pr.GetUser().GetLogin(), pr.GetHTMLURL())
		if err := send(ctx, items, item); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connector) emitCommits(ctx context.Context, repo string, items chan<- domain.RawItem) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}

	opts := &gh.CommitsListOptions{
		ListOptions: gh.ListOptions{PerPage: DefaultCommitLimit},
	}
	commits, resp, err := c.client.Repositories.ListCommits(ctx, c.cfg.Org, repo, opts)
	if resp != nil {
		c.limiter.update(resp.Response)
	}
	if err != nil {
		return err
	}

	messages := make([]string, 0, len(commits))
	for _, commit := range commits {
		if msg := commit.GetCommit().GetMessage(); msg != "" {
			messages = append(messages, msg)
		}
	}

	for _, item := range CommitItems(c.cfg.Org, repo, messages, c.cfg.CommitBatchSize) {
		if err := send(ctx, items, item); err != nil {
			return err
		}
	}
	return nil
}

// ReadmeItem builds the raw item for a repository readme.
func ReadmeItem(org, repo, content string) domain.RawItem {
	return domain.RawItem{
		DocID:   fmt.Sprintf("gh_readme_%s", repo),
		Source:  domain.SourceGitHub,
		Type:    domain.ContentReadme,
		Group:   repo,
		Content: content,
		URL:     fmt.Sprintf("https://github.com/%s/%s", org, repo),
		Metadata: map[string]any{
			"repo": repo,
		},
	}
}

// PullRequestItem builds the raw item for one pull request. Title and
// body are folded into a single document.
func PullRequestItem(repo string, number int, title, body, author, url string) domain.RawItem {
	content := strings.TrimSpace(fmt.Sprintf("PR #%d - %s\n\n%s", number, title, body))
	return domain.RawItem{
		DocID:   fmt.Sprintf("gh_pr_%s_%d", repo, number),
		Source:  domain.SourceGitHub,
		Type:    domain.ContentPR,
		Group:   repo,
		Content: content,
		Author:  author,
		URL:     url,
		Metadata: map[string]any{
			"repo": repo,
		},
	}
}

// CommitItems groups commit messages into fixed-size batches, one raw
// item per batch. Individual commit messages are too thin to embed
// alone.
func CommitItems(org, repo string, messages []string, batchSize int) []domain.RawItem {
	if batchSize <= 0 {
		batchSize = DefaultCommitBatchSize
	}

	var items []domain.RawItem
	for start := 0; start < len(messages); start += batchSize {
		end := start + batchSize
		if end > len(messages) {
			end = len(messages)
		}

		var b strings.Builder
		b.WriteString("Recent commits:")
		for _, msg := range messages[start:end] {
			b.WriteString("\n- " + msg)
		}

		items = append(items, domain.RawItem{
			DocID:   fmt.Sprintf("gh_commit_%s_%d", repo, start/batchSize),
			Source:  domain.SourceGitHub,
			Type:    domain.ContentCommits,
			Group:   repo,
			Content: b.String(),
			URL:     fmt.Sprintf("https://github.com/%s/%s/commits", org, repo),
			Metadata: map[string]any{
				"repo": repo,
			},
		})
	}
	return items
}

func send(ctx context.Context, items chan<- domain.RawItem, item domain.RawItem) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case items <- item:
		return nil
	}
}

func sendErr(ctx context.Context, errs chan<- error, err error) {
	select {
	case <-ctx.Done():
	case errs <- err:
	}
}
