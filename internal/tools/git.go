package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/format"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/logging"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/security"
)

// GitOptions configures the git tool family.
type GitOptions struct {
	WorkDir       string
	Token         string
	PrimaryBranch string
	AuthorName    string
	AuthorEmail   string
	APIBaseURL    string
	// Timeout bounds every git invocation. Clone and push talk to the
	// network and can stall on a dead transport.
	Timeout time.Duration
}

// Git wraps the version-control binary with a deterministic machine identity
// and verbatim argument passing (no shell interpretation anywhere).
type Git struct {
	opts GitOptions
}

// NewGit creates the git runner shared by the git tools and the backup
// protocol.
func NewGit(opts GitOptions) *Git {
	if opts.PrimaryBranch == "" {
		opts.PrimaryBranch = "main"
	}
	if opts.AuthorName == "" {
		opts.AuthorName = "autoland-agent"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "agent@autoland.invalid"
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = "https://api.github.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	return &Git{opts: opts}
}

// run invokes git with verbatim arguments in the work dir, bounded by the
// configured timeout. It returns the combined output and exit code; a
// non-zero exit is not a Go error.
func (g *Git) run(ctx context.Context, args ...string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.opts.WorkDir
	cmd.Env = append(cmd.Environ(),
		"GIT_AUTHOR_NAME="+g.opts.AuthorName,
		"GIT_AUTHOR_EMAIL="+g.opts.AuthorEmail,
		"GIT_COMMITTER_NAME="+g.opts.AuthorName,
		"GIT_COMMITTER_EMAIL="+g.opts.AuthorEmail,
		"GIT_TERMINAL_PROMPT=0",
	)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	out := strings.TrimRight(buf.String(), "\n")
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return out, -1, fmt.Errorf("git %s timed out after %s", args[0], g.opts.Timeout)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return out, exitErr.ExitCode(), nil
		}
		return out, -1, err
	}
	return out, 0, nil
}

// Run invokes an arbitrary git subcommand for hosts that need git outside the
// tool surface, with the same identity and exit-code contract as run.
func (g *Git) Run(ctx context.Context, args ...string) (string, int, error) {
	return g.run(ctx, args...)
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	out, code, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("rev-parse failed: %s", out)
	}
	return strings.TrimSpace(out), nil
}

// PrimaryBranch returns the configured primary branch name.
func (g *Git) PrimaryBranch() string { return g.opts.PrimaryBranch }

// head returns the current revision pointer, empty when the repository has no
// commits yet.
func (g *Git) head(ctx context.Context) string {
	out, code, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil || code != 0 {
		return ""
	}
	return strings.TrimSpace(out)
}

// featureBranchName generates a disposable push target derived from the
// current time. Never equal to any primary branch name.
func featureBranchName(now time.Time) string {
	return fmt.Sprintf("agent/changes-%d", now.Unix())
}

// resolvePushBranch substitutes a feature branch whenever the requested
// branch is the primary. The primary branch is never a push target.
func resolvePushBranch(requested, primary string, now time.Time) (branch string, substituted bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == primary {
		return featureBranchName(now), true
	}
	return requested, false
}

// authedRemoteURL injects the token into an https remote URL. Used only for
// the duration of a single push; the stored remote is never rewritten.
func authedRemoteURL(remote, token string) string {
	if token == "" || !strings.HasPrefix(remote, "https://") {
		return remote
	}
	return "https://x-access-token:" + token + "@" + strings.TrimPrefix(remote, "https://")
}

// parseOwnerRepo extracts "owner/repo" from https and ssh remote URLs.
func parseOwnerRepo(remote string) (string, error) {
	remote = strings.TrimSuffix(strings.TrimSpace(remote), ".git")
	if m := regexp.MustCompile(`^https://[^/]+/([^/]+)/([^/]+)$`).FindStringSubmatch(remote); m != nil {
		return m[1] + "/" + m[2], nil
	}
	if m := regexp.MustCompile(`^(?:ssh://)?git@[^:/]+[:/]([^/]+)/([^/]+)$`).FindStringSubmatch(remote); m != nil {
		return m[1] + "/" + m[2], nil
	}
	return "", fmt.Errorf("cannot determine owner/repo from remote %q", remote)
}

// isAllowedCloneURL accepts only https and ssh transports.
func isAllowedCloneURL(url string) bool {
	url = strings.TrimSpace(url)
	return strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "ssh://") ||
		regexp.MustCompile(`^git@[^:/]+:`).MatchString(url)
}

// GitCloneTool clones a repository into a directory under the project root.
type GitCloneTool struct {
	git       *Git
	validator *security.PathValidator
}

// NewGitCloneTool creates a GitCloneTool.
func NewGitCloneTool(git *Git, validator *security.PathValidator) *GitCloneTool {
	return &GitCloneTool{git: git, validator: validator}
}

func (t *GitCloneTool) Name() string { return "git_clone" }

func (t *GitCloneTool) Description() string {
	return "Clones a repository over https or ssh into a directory under the project root."
}

func (t *GitCloneTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"url": {Type: genai.TypeString, Description: "Repository URL (https or ssh only)"},
				"dir": {Type: genai.TypeString, Description: "Target directory relative to the project root"},
			},
			Required: []string{"url", "dir"},
		},
	}
}

func (t *GitCloneTool) Validate(args map[string]any) error {
	url, ok := GetString(args, "url")
	if !ok || url == "" {
		return NewValidationError("url", "is required")
	}
	if !isAllowedCloneURL(url) {
		return NewValidationError("url", "must use https or ssh transport")
	}
	if dir, ok := GetString(args, "dir"); !ok || dir == "" {
		return NewValidationError("dir", "is required")
	}
	return nil
}

func (t *GitCloneTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	url, _ := GetString(args, "url")
	dir, _ := GetString(args, "dir")

	validDir, err := t.validator.Validate(dir)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("path validation failed: %s", err))
	}

	out, code, err := t.git.run(ctx, "clone", url, validDir)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("git clone failed: %s", err))
	}
	if code != 0 {
		return NewErrorResult(fmt.Sprintf("git clone failed: %s", format.Truncate(out, format.MaxErrorChars)))
	}
	return NewSuccessResult(fmt.Sprintf("Cloned %s into %s", url, dir))
}

// GitAddTool stages files.
type GitAddTool struct {
	git *Git
}

// NewGitAddTool creates a GitAddTool.
func NewGitAddTool(git *Git) *GitAddTool { return &GitAddTool{git: git} }

func (t *GitAddTool) Name() string { return "git_add" }

func (t *GitAddTool) Description() string {
	return "Stages the given files (or everything with '.') for the next commit."
}

func (t *GitAddTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"files": {
					Type:        genai.TypeArray,
					Description: "File paths to stage, relative to the project root",
					Items:       &genai.Schema{Type: genai.TypeString},
				},
			},
			Required: []string{"files"},
		},
	}
}

func (t *GitAddTool) Validate(args map[string]any) error {
	files, ok := GetStringSlice(args, "files")
	if !ok || len(files) == 0 {
		return NewValidationError("files", "must be a non-empty list of paths")
	}
	return nil
}

func (t *GitAddTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	files, _ := GetStringSlice(args, "files")
	gitArgs := append([]string{"add", "--"}, files...)
	out, code, err := t.git.run(ctx, gitArgs...)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("git add failed: %s", err))
	}
	if code != 0 {
		return NewErrorResult(fmt.Sprintf("git add failed: %s", format.Truncate(out, format.MaxErrorChars)))
	}
	return NewSuccessResult(fmt.Sprintf("Staged %d path(s)", len(files)))
}

// GitCommitTool commits staged changes with the machine author identity.
type GitCommitTool struct {
	git *Git
}

// NewGitCommitTool creates a GitCommitTool.
func NewGitCommitTool(git *Git) *GitCommitTool { return &GitCommitTool{git: git} }

func (t *GitCommitTool) Name() string { return "git_commit" }

func (t *GitCommitTool) Description() string {
	return "Commits all staged and tracked changes with the given message. 'Nothing to commit' counts as success with no commit hash."
}

func (t *GitCommitTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"message": {Type: genai.TypeString, Description: "Commit message"},
			},
			Required: []string{"message"},
		},
	}
}

func (t *GitCommitTool) Validate(args map[string]any) error {
	if msg, ok := GetString(args, "message"); !ok || strings.TrimSpace(msg) == "" {
		return NewValidationError("message", "is required")
	}
	return nil
}

func (t *GitCommitTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	message, _ := GetString(args, "message")

	out, code, err := t.git.run(ctx, "commit", "-a", "-m", message)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("git commit failed: %s", err))
	}
	if code != 0 {
		// A clean tree is success with a null hash, not a failure.
		if strings.Contains(out, "nothing to commit") || strings.Contains(out, "working tree clean") {
			return NewSuccessResultWithData("Nothing to commit, working tree clean", map[string]any{"commit": nil})
		}
		return NewErrorResult(fmt.Sprintf("git commit failed: %s", format.Truncate(out, format.MaxErrorChars)))
	}

	hash := t.git.head(ctx)
	return NewSuccessResultWithData(
		fmt.Sprintf("Committed %s: %s", shortHash(hash), strings.SplitN(message, "\n", 2)[0]),
		map[string]any{"commit": hash},
	)
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// GitLogTool shows recent history.
type GitLogTool struct {
	git *Git
}

// NewGitLogTool creates a GitLogTool.
func NewGitLogTool(git *Git) *GitLogTool { return &GitLogTool{git: git} }

func (t *GitLogTool) Name() string { return "git_log" }

func (t *GitLogTool) Description() string {
	return "Shows the most recent commits, one line each."
}

func (t *GitLogTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"count": {Type: genai.TypeInteger, Description: "Number of commits to show (default 10)"},
			},
		},
	}
}

func (t *GitLogTool) Validate(args map[string]any) error {
	if count, ok := GetInt(args, "count"); ok && count <= 0 {
		return NewValidationError("count", "must be positive")
	}
	return nil
}

func (t *GitLogTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	count := GetIntDefault(args, "count", 10)
	out, code, err := t.git.run(ctx, "log", "--oneline", fmt.Sprintf("-%d", count))
	if err != nil {
		return NewErrorResult(fmt.Sprintf("git log failed: %s", err))
	}
	if code != 0 {
		return NewErrorResult(fmt.Sprintf("git log failed: %s", format.Truncate(out, format.MaxErrorChars)))
	}
	if out == "" {
		out = "(no commits)"
	}
	return NewSuccessResult(format.Truncate(out, format.MaxToolOutputChars))
}

// GitDiffTool shows pending changes, optionally for one file.
type GitDiffTool struct {
	git *Git
}

// NewGitDiffTool creates a GitDiffTool.
func NewGitDiffTool(git *Git) *GitDiffTool { return &GitDiffTool{git: git} }

func (t *GitDiffTool) Name() string { return "git_diff" }

func (t *GitDiffTool) Description() string {
	return "Shows uncommitted changes as a unified diff, for the whole tree or a single file."
}

func (t *GitDiffTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file": {Type: genai.TypeString, Description: "Optional file path to limit the diff"},
			},
		},
	}
}

func (t *GitDiffTool) Validate(args map[string]any) error { return nil }

func (t *GitDiffTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	gitArgs := []string{"diff", "HEAD"}
	if file, ok := GetString(args, "file"); ok && file != "" {
		gitArgs = append(gitArgs, "--", file)
	}
	out, code, err := t.git.run(ctx, gitArgs...)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("git diff failed: %s", err))
	}
	if code != 0 {
		return NewErrorResult(fmt.Sprintf("git diff failed: %s", format.Truncate(out, format.MaxErrorChars)))
	}
	if out == "" {
		out = "(no changes)"
	}
	return NewSuccessResult(format.Truncate(out, format.MaxToolOutputChars))
}

// GitPushTool pushes to a feature branch. The primary branch is never a push
// target: naming it substitutes a freshly generated feature branch, and the
// substituted name is returned to the caller.
type GitPushTool struct {
	git *Git
	now func() time.Time
}

// NewGitPushTool creates a GitPushTool.
func NewGitPushTool(git *Git) *GitPushTool {
	return &GitPushTool{git: git, now: time.Now}
}

func (t *GitPushTool) Name() string { return "git_push" }

func (t *GitPushTool) Description() string {
	return "Pushes the current HEAD to the named branch on origin. Pushes to the primary branch are redirected to a fresh feature branch; the pushed branch name is returned."
}

func (t *GitPushTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"branch": {Type: genai.TypeString, Description: "Branch name to push to"},
			},
			Required: []string{"branch"},
		},
	}
}

func (t *GitPushTool) Validate(args map[string]any) error {
	if branch, ok := GetString(args, "branch"); !ok || branch == "" {
		return NewValidationError("branch", "is required")
	}
	return nil
}

func (t *GitPushTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	requested, _ := GetString(args, "branch")

	branch, substituted := resolvePushBranch(requested, t.git.opts.PrimaryBranch, t.now())
	if substituted {
		logging.Info("push target substituted",
			"requested", requested,
			"branch", branch)
	}

	remote, code, err := t.git.run(ctx, "remote", "get-url", "origin")
	if err != nil || code != 0 {
		return NewErrorResult(fmt.Sprintf("cannot resolve origin remote: %s", format.Truncate(remote, format.MaxErrorChars)))
	}
	remote = strings.TrimSpace(remote)

	// Token is injected into the URL for this single push only; the stored
	// remote configuration is untouched.
	target := authedRemoteURL(remote, t.git.opts.Token)
	out, code, err := t.git.run(ctx, "push", target, "HEAD:refs/heads/"+branch)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("git push failed: %s", err))
	}
	if code != 0 {
		return NewErrorResult(fmt.Sprintf("git push failed: %s", format.Truncate(out, format.MaxErrorChars)))
	}

	// Keep the local HEAD on the pushed branch so a follow-up PR call sees a
	// non-primary current branch.
	if _, _, err := t.git.run(ctx, "checkout", "-B", branch); err != nil {
		logging.Warn("failed to switch to pushed branch", "branch", branch, "error", err)
	}

	msg := fmt.Sprintf("Pushed to branch %s", branch)
	if substituted {
		msg += fmt.Sprintf(" (substituted for %q: pushes never target the primary branch)", requested)
	}
	return NewSuccessResultWithData(msg, map[string]any{
		"branch":      branch,
		"substituted": substituted,
	})
}

// GitCreatePRTool opens a pull request against the primary branch via the
// hosting REST API.
type GitCreatePRTool struct {
	git        *Git
	httpClient *http.Client
}

// NewGitCreatePRTool creates a GitCreatePRTool.
func NewGitCreatePRTool(git *Git) *GitCreatePRTool {
	return &GitCreatePRTool{
		git:        git,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *GitCreatePRTool) Name() string { return "git_create_pr" }

func (t *GitCreatePRTool) Description() string {
	return "Creates a pull request from the current branch into the primary branch. Requires a hosting token and a non-primary current branch."
}

func (t *GitCreatePRTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title": {Type: genai.TypeString, Description: "Pull request title"},
				"body":  {Type: genai.TypeString, Description: "Pull request body"},
			},
			Required: []string{"title"},
		},
	}
}

func (t *GitCreatePRTool) Validate(args map[string]any) error {
	if title, ok := GetString(args, "title"); !ok || strings.TrimSpace(title) == "" {
		return NewValidationError("title", "is required")
	}
	return nil
}

func (t *GitCreatePRTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	title, _ := GetString(args, "title")
	body, _ := GetString(args, "body")

	if t.git.opts.Token == "" {
		return NewErrorResult("cannot create pull request: no hosting token configured (set GITHUB_TOKEN)")
	}

	branch, err := t.git.CurrentBranch(ctx)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("cannot determine current branch: %s", err))
	}
	if branch == t.git.opts.PrimaryBranch {
		return NewErrorResult(fmt.Sprintf("cannot create pull request from the primary branch %q; push to a feature branch first", branch))
	}

	remote, code, runErr := t.git.run(ctx, "remote", "get-url", "origin")
	if runErr != nil || code != 0 {
		return NewErrorResult(fmt.Sprintf("cannot resolve origin remote: %s", format.Truncate(remote, format.MaxErrorChars)))
	}
	ownerRepo, err := parseOwnerRepo(remote)
	if err != nil {
		return NewErrorResult(err.Error())
	}

	payload, _ := json.Marshal(map[string]string{
		"title": title,
		"body":  body,
		"head":  branch,
		"base":  t.git.opts.PrimaryBranch,
	})

	url := fmt.Sprintf("%s/repos/%s/pulls", strings.TrimRight(t.git.opts.APIBaseURL, "/"), ownerRepo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return NewErrorResult(fmt.Sprintf("failed to build PR request: %s", err))
	}
	req.Header.Set("Authorization", "Bearer "+t.git.opts.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("PR request failed: %s", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusCreated {
		return NewErrorResult(fmt.Sprintf("PR creation failed (HTTP %d): %s",
			resp.StatusCode, format.Truncate(string(respBody), format.MaxErrorChars)))
	}

	var pr struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return NewErrorResult(fmt.Sprintf("failed to parse PR response: %s", err))
	}

	return NewSuccessResultWithData(
		fmt.Sprintf("Created pull request #%d: %s", pr.Number, pr.HTMLURL),
		map[string]any{"number": pr.Number, "url": pr.HTMLURL},
	)
}
