// Package state holds the single execution-state record for a run. The record
// is owned by the orchestration loop and mutated only through the named
// setters here; other components read snapshots. The setters keep the
// invariant surface auditable: goal set once, changed files append-only and
// deduplicated, git progress monotonic.
package state

import (
	"fmt"
	"sort"
	"strings"
)

// BuildStatus is the last result of a build attempt, overwritten on each run.
type BuildStatus struct {
	Ran     bool
	Success bool
	Errors  []string
	Output  string
}

// VerificationCheck is one reachability/validation result.
type VerificationCheck struct {
	Target  string
	Success bool
}

// VerificationStatus is the last result of an external validation step.
type VerificationStatus struct {
	Ran     bool
	Success bool
	Checks  []VerificationCheck
}

// GitStatus tracks version-control progress. Fields only advance within a
// run: committed, then pushed, then PR created.
type GitStatus struct {
	Committed  bool
	Pushed     bool
	CommitHash string
	Branch     string
	PRURL      string
}

// Plan is an advisory structured plan the model may declare. The loop records
// it but does not enforce it.
type Plan struct {
	Steps       []string
	CurrentStep int
}

// RunState is the process-lifetime execution state record.
type RunState struct {
	goal         string
	goalSet      bool
	changedFiles map[string]bool
	build        BuildStatus
	verification VerificationStatus
	git          GitStatus
	plan         Plan

	iteration int
	maxIter   int
	errors    []string
	repairs   int

	done   bool
	result string
}

// New creates a RunState with the given iteration budget.
func New(maxIterations int) *RunState {
	return &RunState{
		changedFiles: make(map[string]bool),
		maxIter:      maxIterations,
	}
}

// SetGoal records the goal. It is immutable after the first call; later calls
// are ignored.
func (s *RunState) SetGoal(goal string) {
	if s.goalSet {
		return
	}
	s.goal = goal
	s.goalSet = true
}

// Goal returns the run goal.
func (s *RunState) Goal() string { return s.goal }

// AddChangedFile records a modified file path. The set is append-only and
// deduplicated; paths are stored as given (relative to the project root).
func (s *RunState) AddChangedFile(path string) {
	if path == "" {
		return
	}
	s.changedFiles[path] = true
}

// ChangedFiles returns the sorted set of changed paths.
func (s *RunState) ChangedFiles() []string {
	out := make([]string, 0, len(s.changedFiles))
	for p := range s.changedFiles {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SetBuildStatus overwrites the build record with the latest attempt.
func (s *RunState) SetBuildStatus(success bool, errors []string, output string) {
	s.build = BuildStatus{
		Ran:     true,
		Success: success,
		Errors:  append([]string(nil), errors...),
		Output:  output,
	}
}

// Build returns the last build status.
func (s *RunState) Build() BuildStatus { return s.build }

// SetVerification overwrites the verification record.
func (s *RunState) SetVerification(success bool, checks []VerificationCheck) {
	s.verification = VerificationStatus{
		Ran:     true,
		Success: success,
		Checks:  append([]VerificationCheck(nil), checks...),
	}
}

// Verification returns the last verification status.
func (s *RunState) Verification() VerificationStatus { return s.verification }

// MarkCommitted records a commit. An empty hash is valid: "nothing to commit"
// is treated as a successful commit with a null hash.
func (s *RunState) MarkCommitted(hash string) {
	s.git.Committed = true
	if hash != "" {
		s.git.CommitHash = hash
	}
}

// MarkPushed records a successful push to branch.
func (s *RunState) MarkPushed(branch string) {
	s.git.Pushed = true
	if branch != "" {
		s.git.Branch = branch
	}
}

// MarkPRCreated records the created pull request URL.
func (s *RunState) MarkPRCreated(url string) {
	if url != "" {
		s.git.PRURL = url
	}
}

// Git returns the version-control progress record.
func (s *RunState) Git() GitStatus { return s.git }

// SetPlan records an advisory plan declared by the model.
func (s *RunState) SetPlan(steps []string) {
	s.plan = Plan{Steps: append([]string(nil), steps...)}
}

// AdvancePlanStep moves the advisory step cursor forward, bounded by the
// number of steps.
func (s *RunState) AdvancePlanStep() {
	if s.plan.CurrentStep < len(s.plan.Steps) {
		s.plan.CurrentStep++
	}
}

// PlanSteps returns the advisory plan.
func (s *RunState) PlanSteps() Plan { return s.plan }

// NextIteration increments the loop counter and reports whether the budget
// allows another pass.
func (s *RunState) NextIteration() bool {
	if s.iteration >= s.maxIter {
		return false
	}
	s.iteration++
	return true
}

// Iteration returns the current iteration count.
func (s *RunState) Iteration() int { return s.iteration }

// MaxIterations returns the configured budget.
func (s *RunState) MaxIterations() int { return s.maxIter }

// RecordError appends an error message to the ordered iteration error list.
func (s *RunState) RecordError(msg string) {
	if msg == "" {
		return
	}
	s.errors = append(s.errors, msg)
}

// Errors returns the ordered error list.
func (s *RunState) Errors() []string { return append([]string(nil), s.errors...) }

// IncrRepairs increments the repair counter, once per detected tool failure.
func (s *RunState) IncrRepairs() { s.repairs++ }

// Repairs returns the repair count.
func (s *RunState) Repairs() int { return s.repairs }

// MarkDone records normal completion with the model's result text.
func (s *RunState) MarkDone(result string) {
	s.done = true
	s.result = result
}

// Done reports whether the run completed normally.
func (s *RunState) Done() bool { return s.done }

// Result returns the completion text.
func (s *RunState) Result() string { return s.result }

// Summary renders a compact state summary appended to history to keep the
// model anchored. Kept short on purpose: it enters the context window.
func (s *RunState) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[state] iteration %d/%d, repairs %d", s.iteration, s.maxIter, s.repairs)
	if n := len(s.changedFiles); n > 0 {
		fmt.Fprintf(&b, ", files changed: %s", strings.Join(s.ChangedFiles(), ", "))
	}
	if s.build.Ran {
		if s.build.Success {
			b.WriteString(", build: ok")
		} else {
			fmt.Fprintf(&b, ", build: FAILED (%d errors)", len(s.build.Errors))
		}
	}
	if s.verification.Ran {
		if s.verification.Success {
			b.WriteString(", verification: ok")
		} else {
			b.WriteString(", verification: FAILED")
		}
	}
	switch {
	case s.git.PRURL != "":
		fmt.Fprintf(&b, ", git: PR created (%s)", s.git.PRURL)
	case s.git.Pushed:
		fmt.Fprintf(&b, ", git: pushed to %s", s.git.Branch)
	case s.git.Committed:
		b.WriteString(", git: committed")
	}
	if len(s.plan.Steps) > 0 {
		fmt.Fprintf(&b, ", plan: step %d/%d", s.plan.CurrentStep, len(s.plan.Steps))
	}
	return b.String()
}

// FinalReport renders the run outcome for the host. It is produced on every
// exit path, normal or not.
func (s *RunState) FinalReport() string {
	var b strings.Builder
	b.WriteString("=== Run summary ===\n")
	fmt.Fprintf(&b, "Goal: %s\n", s.goal)
	fmt.Fprintf(&b, "Completed: %v\n", s.done)
	fmt.Fprintf(&b, "Iterations used: %d/%d\n", s.iteration, s.maxIter)
	fmt.Fprintf(&b, "Repairs: %d\n", s.repairs)
	if files := s.ChangedFiles(); len(files) > 0 {
		fmt.Fprintf(&b, "Files changed (%d): %s\n", len(files), strings.Join(files, ", "))
	} else {
		b.WriteString("Files changed: none\n")
	}
	if s.build.Ran {
		fmt.Fprintf(&b, "Build: ran=true success=%v\n", s.build.Success)
	} else {
		b.WriteString("Build: not run\n")
	}
	if s.verification.Ran {
		fmt.Fprintf(&b, "Verification: ran=true success=%v\n", s.verification.Success)
	}
	fmt.Fprintf(&b, "Git: committed=%v pushed=%v", s.git.Committed, s.git.Pushed)
	if s.git.Branch != "" {
		fmt.Fprintf(&b, " branch=%s", s.git.Branch)
	}
	if s.git.CommitHash != "" {
		fmt.Fprintf(&b, " commit=%s", s.git.CommitHash)
	}
	if s.git.PRURL != "" {
		fmt.Fprintf(&b, " pr=%s", s.git.PRURL)
	}
	b.WriteString("\n")
	if s.result != "" {
		fmt.Fprintf(&b, "Result: %s\n", s.result)
	}
	if len(s.errors) > 0 {
		fmt.Fprintf(&b, "Errors (%d): %s\n", len(s.errors), strings.Join(s.errors, "; "))
	}
	return b.String()
}
