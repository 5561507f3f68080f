package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	githubclient "github.com/bogdankharchenko/linear-agent/internal/clients/github"
	"github.com/bogdankharchenko/linear-agent/internal/clients/linear"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// In-memory реализации репозиториев и клиентов для unit-тестов.

type memTeams struct {
	cfgs map[string]storage.TeamConfig
}

func newMemTeams() *memTeams { return &memTeams{cfgs: map[string]storage.TeamConfig{}} }

func teamKey(workspaceID, teamID string) string { return workspaceID + "|" + teamID }

func (m *memTeams) Get(_ context.Context, workspaceID, teamID string) (storage.TeamConfig, *apperrors.AppError) {
	cfg, ok := m.cfgs[teamKey(workspaceID, teamID)]
	if !ok {
		return storage.TeamConfig{}, apperrors.New(apperrors.ErrNotFound)
	}
	return cfg, nil
}

func (m *memTeams) Exists(_ context.Context, workspaceID, teamID string) (bool, *apperrors.AppError) {
	_, ok := m.cfgs[teamKey(workspaceID, teamID)]
	return ok, nil
}

func (m *memTeams) Upsert(_ context.Context, cfg storage.TeamConfig) *apperrors.AppError {
	m.cfgs[teamKey(cfg.WorkspaceID, cfg.TeamID)] = cfg
	return nil
}

type memPendings struct {
	m map[string]storage.PendingConfig
}

func newMemPendings() *memPendings { return &memPendings{m: map[string]storage.PendingConfig{}} }

func (p *memPendings) Get(_ context.Context, sessionID string) (storage.PendingConfig, *apperrors.AppError) {
	cfg, ok := p.m[sessionID]
	if !ok {
		return storage.PendingConfig{}, apperrors.New(apperrors.ErrNotFound)
	}
	return cfg, nil
}

func (p *memPendings) Replace(_ context.Context, cfg storage.PendingConfig) *apperrors.AppError {
	p.m[cfg.SessionID] = cfg
	return nil
}

func (p *memPendings) Delete(_ context.Context, sessionID string) *apperrors.AppError {
	delete(p.m, sessionID)
	return nil
}

type memTriggers struct {
	m    map[string]storage.PendingWorkflowTrigger
	tick int
}

func newMemTriggers() *memTriggers {
	return &memTriggers{m: map[string]storage.PendingWorkflowTrigger{}}
}

func (t *memTriggers) Replace(_ context.Context, trigger storage.PendingWorkflowTrigger) *apperrors.AppError {
	t.tick++
	trigger.CreatedAt = time.Unix(int64(t.tick), 0)
	trigger.MatchedAt = nil
	t.m[trigger.SessionID+"|"+string(trigger.Kind)] = trigger
	return nil
}

func (t *memTriggers) FindUnmatched(_ context.Context, owner, repo, branch string) (storage.PendingWorkflowTrigger, *apperrors.AppError) {
	var best storage.PendingWorkflowTrigger
	found := false
	for _, trig := range t.m {
		if trig.RepoOwner != owner || trig.RepoName != repo || trig.Branch != branch || trig.MatchedAt != nil {
			continue
		}
		if !found || trig.CreatedAt.After(best.CreatedAt) {
			best = trig
			found = true
		}
	}
	if !found {
		return storage.PendingWorkflowTrigger{}, apperrors.New(apperrors.ErrNotFound)
	}
	return best, nil
}

func (t *memTriggers) MarkMatched(_ context.Context, triggerID string) *apperrors.AppError {
	for key, trig := range t.m {
		if trig.ID == triggerID && trig.MatchedAt == nil {
			now := time.Now()
			trig.MatchedAt = &now
			t.m[key] = trig
			return nil
		}
	}
	return apperrors.New(apperrors.ErrNotFound)
}

type memRuns struct {
	m map[int64]storage.WorkflowRun
}

func newMemRuns() *memRuns { return &memRuns{m: map[int64]storage.WorkflowRun{}} }

func (r *memRuns) Create(_ context.Context, run storage.WorkflowRun) *apperrors.AppError {
	if _, ok := r.m[run.RunID]; ok {
		return nil
	}
	r.m[run.RunID] = run
	return nil
}

func (r *memRuns) Get(_ context.Context, runID int64) (storage.WorkflowRun, *apperrors.AppError) {
	run, ok := r.m[runID]
	if !ok {
		return storage.WorkflowRun{}, apperrors.New(apperrors.ErrNotFound)
	}
	return run, nil
}

func (r *memRuns) GetActiveByIssue(_ context.Context, issueID string) (storage.WorkflowRun, *apperrors.AppError) {
	for _, run := range r.m {
		if run.IssueID == issueID && run.Status != storage.StatusCompleted {
			return run, nil
		}
	}
	return storage.WorkflowRun{}, apperrors.New(apperrors.ErrNotFound)
}

func (r *memRuns) UpdateStatus(_ context.Context, runID int64, status storage.RunStatus) *apperrors.AppError {
	run, ok := r.m[runID]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound)
	}
	if !storage.CanTransition(run.Status, status) {
		return nil
	}
	run.Status = status
	r.m[runID] = run
	return nil
}

func (r *memRuns) Complete(_ context.Context, runID int64, conclusion storage.RunConclusion) *apperrors.AppError {
	run, ok := r.m[runID]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound)
	}
	if run.Status == storage.StatusCompleted {
		return apperrors.New(apperrors.ErrRunCompleted)
	}
	run.Status = storage.StatusCompleted
	run.Conclusion = conclusion
	r.m[runID] = run
	return nil
}

func (r *memRuns) SetPullRequest(_ context.Context, runID int64, prNumber int, prURL string) *apperrors.AppError {
	run, ok := r.m[runID]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound)
	}
	if run.PRNumber != nil {
		return nil
	}
	run.PRNumber = &prNumber
	run.PRURL = &prURL
	r.m[runID] = run
	return nil
}

type memRunLogs struct {
	entries []storage.RunLogEntry
}

func (l *memRunLogs) Append(_ context.Context, entry storage.RunLogEntry) *apperrors.AppError {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memRunLogs) ListBySession(_ context.Context, sessionID string) ([]storage.RunLogEntry, *apperrors.AppError) {
	var out []storage.RunLogEntry
	for _, e := range l.entries {
		if e.SessionID != nil && *e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memInstalls struct {
	m map[int64]storage.Installation
}

func newMemInstalls() *memInstalls { return &memInstalls{m: map[int64]storage.Installation{}} }

func (i *memInstalls) Upsert(_ context.Context, inst storage.Installation) *apperrors.AppError {
	i.m[inst.InstallationID] = inst
	return nil
}

func (i *memInstalls) Delete(_ context.Context, installationID int64) *apperrors.AppError {
	delete(i.m, installationID)
	return nil
}

func (i *memInstalls) GetByLogin(_ context.Context, accountLogin string) (storage.Installation, *apperrors.AppError) {
	for _, inst := range i.m {
		if inst.AccountLogin == accountLogin {
			return inst, nil
		}
	}
	return storage.Installation{}, apperrors.New(apperrors.ErrNotFound)
}

type memProcessed struct {
	m map[string]bool
}

func newMemProcessed() *memProcessed { return &memProcessed{m: map[string]bool{}} }

func (p *memProcessed) IsProcessed(_ context.Context, eventID string, source storage.EventSource) (bool, *apperrors.AppError) {
	return p.m[eventID+"|"+string(source)], nil
}

func (p *memProcessed) MarkProcessed(_ context.Context, eventID string, source storage.EventSource) *apperrors.AppError {
	p.m[eventID+"|"+string(source)] = true
	return nil
}

type sentActivity struct {
	SessionID string
	Content   linear.ActivityContent
}

type sentAttachment struct {
	IssueID string
	Title   string
	URL     string
}

type fakeTicket struct {
	issue       linear.IssueContext
	activities  []sentActivity
	attachments []sentAttachment
}

func (f *fakeTicket) CreateAgentActivity(_ context.Context, sessionID string, content linear.ActivityContent) *apperrors.AppError {
	f.activities = append(f.activities, sentActivity{SessionID: sessionID, Content: content})
	return nil
}

func (f *fakeTicket) FetchIssueContext(_ context.Context, _ string) (linear.IssueContext, *apperrors.AppError) {
	return f.issue, nil
}

func (f *fakeTicket) CreateAttachment(_ context.Context, issueID, title, url string) *apperrors.AppError {
	f.attachments = append(f.attachments, sentAttachment{IssueID: issueID, Title: title, URL: url})
	return nil
}

func (f *fakeTicket) lastActivity() sentActivity {
	return f.activities[len(f.activities)-1]
}

type dispatchedJob struct {
	Owner, Repo, WorkflowFile, Ref string
	Inputs                         map[string]string
}

type fakeCI struct {
	branches      []string
	defaultBranch string
	prsByBranch   map[string][]githubclient.PullRequestRef
	prsByTerm     map[string][]githubclient.PullRequestRef
	dispatches    []dispatchedJob
	cancelled     []int64
}

func (f *fakeCI) ListBranchNames(_ context.Context, _, _ string) ([]string, *apperrors.AppError) {
	return f.branches, nil
}

func (f *fakeCI) GetDefaultBranch(_ context.Context, _, _ string) (string, *apperrors.AppError) {
	return f.defaultBranch, nil
}

func (f *fakeCI) DispatchWorkflow(_ context.Context, owner, repo, workflowFile, ref string, inputs map[string]string) *apperrors.AppError {
	f.dispatches = append(f.dispatches, dispatchedJob{Owner: owner, Repo: repo, WorkflowFile: workflowFile, Ref: ref, Inputs: inputs})
	return nil
}

func (f *fakeCI) CancelRun(_ context.Context, _, _ string, runID int64) *apperrors.AppError {
	f.cancelled = append(f.cancelled, runID)
	return nil
}

func (f *fakeCI) ListPullRequestsForBranch(_ context.Context, _, _, branch string) ([]githubclient.PullRequestRef, *apperrors.AppError) {
	return f.prsByBranch[branch], nil
}

func (f *fakeCI) SearchPullRequestsByTitle(_ context.Context, _, _, term string) ([]githubclient.PullRequestRef, *apperrors.AppError) {
	return f.prsByTerm[term], nil
}

type fakeApp struct {
	info      githubclient.InstallationInfo
	installed bool
}

func (f *fakeApp) CheckInstallation(_ context.Context, _, _ string) (githubclient.InstallationInfo, bool, *apperrors.AppError) {
	return f.info, f.installed, nil
}

type fakeTokens struct{}

func (fakeTokens) GetValidToken(_ context.Context, workspaceID string) (string, *apperrors.AppError) {
	return fmt.Sprintf("token-%s", workspaceID), nil
}

// testEnv собирает оркестратор на in-memory зависимостях.
type testEnv struct {
	orch      *Orchestrator
	teams     *memTeams
	pendings  *memPendings
	triggers  *memTriggers
	runs      *memRuns
	runLogs   *memRunLogs
	installs  *memInstalls
	processed *memProcessed
	ticket    *fakeTicket
	ci        *fakeCI
	app       *fakeApp
}

func newTestEnv() *testEnv {
	env := &testEnv{
		teams:     newMemTeams(),
		pendings:  newMemPendings(),
		triggers:  newMemTriggers(),
		runs:      newMemRuns(),
		runLogs:   &memRunLogs{},
		installs:  newMemInstalls(),
		processed: newMemProcessed(),
		ticket:    &fakeTicket{},
		ci:        &fakeCI{defaultBranch: "main"},
		app:       &fakeApp{},
	}

	env.orch = NewOrchestrator(
		Repos{
			Teams:          env.teams,
			PendingConfigs: env.pendings,
			Triggers:       env.triggers,
			Runs:           env.runs,
			RunLogs:        env.runLogs,
			Installations:  env.installs,
		},
		fakeTokens{},
		func(string) TicketClient { return env.ticket },
		func(int64) (CIClient, *apperrors.AppError) { return env.ci, nil },
		env.app,
		KeywordClassifier{},
		"agent.yml",
	)

	return env
}

func (e *testEnv) processor() *EventProcessor {
	return NewEventProcessor(e.processed, e.runLogs, e.installs, e.orch)
}
