package wizard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/config"
	"github.com/radiusdt/campaign-studio/internal/metrics"
	"github.com/radiusdt/campaign-studio/internal/models"
	"github.com/radiusdt/campaign-studio/internal/remote"
	"github.com/radiusdt/campaign-studio/internal/upload"
	"go.uber.org/zap"
)

// CreationClient creates the remote objects of the wizard. Uploads go
// through the upload pipeline instead.
type CreationClient interface {
	CreateCampaign(ctx context.Context, req remote.CreateCampaignRequest) (*models.Campaign, error)
	CreateAdSet(ctx context.Context, req remote.CreateAdSetRequest) (*models.AdSet, error)
	CreateAd(ctx context.Context, adSetID string) error
}

// DraftStore persists one session per client.
type DraftStore interface {
	Save(ctx context.Context, key string, session *models.CreationSession) error
	// Load returns nil when there is no usable draft.
	Load(ctx context.Context, key string) *models.CreationSession
	Clear(ctx context.Context, key string) error
}

// EventRecorder receives wizard audit events.
type EventRecorder interface {
	Record(ctx context.Context, ev *models.WizardEvent) error
}

// Deps are the collaborators shared by every controller.
type Deps struct {
	Drafts   DraftStore
	Client   CreationClient
	Pipeline *upload.Pipeline
	Events   EventRecorder
	Options  config.WizardConfig
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Controller owns the state of one client's wizard. All operations are
// serialized; remote calls run to completion even if the caller's context
// is canceled.
type Controller struct {
	mu       sync.Mutex
	clientID string
	step     Step
	session  *models.CreationSession
	pending  []models.PendingFile

	uploadDone  atomic.Int64
	uploadTotal atomic.Int64

	drafts   DraftStore
	client   CreationClient
	pipeline *upload.Pipeline
	events   EventRecorder
	opts     config.WizardConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics

	now    func() time.Time
	newRef func(name string) string
}

// NewController creates a controller on step 1 with an empty session.
func NewController(clientID string, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		clientID: clientID,
		step:     StepCampaign,
		session:  models.NewCreationSession(),
		drafts:   deps.Drafts,
		client:   deps.Client,
		pipeline: deps.Pipeline,
		events:   deps.Events,
		opts:     deps.Options,
		logger:   logger.With(zap.String("client_id", clientID)),
		metrics:  deps.Metrics,
		now:      time.Now,
		newRef: func(name string) string {
			return fmt.Sprintf("local://%s/%s", uuid.New().String(), name)
		},
	}
}

// Progress is the state of the running (or last) upload batch.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// State is a snapshot of the wizard for rendering.
type State struct {
	Step         Step                    `json:"step"`
	StepName     string                  `json:"step_name"`
	TotalSteps   int                     `json:"total_steps"`
	Session      *models.CreationSession `json:"session"`
	PendingFiles []models.FileMeta       `json:"pending_files"`
	Progress     Progress                `json:"progress"`
}

// Completion is returned when the final ad was created.
type Completion struct {
	CampaignID string `json:"campaign_id"`
	AdSetID    string `json:"adset_id"`
}

// Draft returns the stored draft, or nil. It does not change the wizard.
func (c *Controller) Draft(ctx context.Context) *models.CreationSession {
	return c.drafts.Load(ctx, c.clientID)
}

// Open starts the wizard. With resume, a stored draft is restored and the
// step clamped to what its data allows; otherwise any draft is discarded.
func (c *Controller) Open(ctx context.Context, resume bool) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = nil
	c.resetProgress(0)

	if resume {
		if draft := c.drafts.Load(ctx, c.clientID); draft != nil {
			c.session = draft
			c.step = ResumeStep(draft)
			c.logger.Info("wizard resumed", zap.Stringer("step", c.step))
			c.record(ctx, models.EventWizardResumed, "")
			return c.stateLocked()
		}
	}

	c.session = models.NewCreationSession()
	c.step = StepCampaign
	if err := c.drafts.Clear(ctx, c.clientID); err != nil {
		c.logger.Warn("failed to clear draft", zap.Error(err))
	}
	c.record(ctx, models.EventWizardOpened, "")
	return c.stateLocked()
}

// SubmitCampaign runs step 1: validates the form, creates the campaign,
// persists the draft and advances to step 2.
func (c *Controller) SubmitCampaign(ctx context.Context, in CampaignInput) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.finishTransition(ctx, StepCampaign, err) }()

	if err := c.requireStep(StepCampaign); err != nil {
		return err
	}
	req, err := c.campaignRequest(in)
	if err != nil {
		return err
	}

	campaign, err := c.client.CreateCampaign(c.detach(ctx), req)
	if err != nil {
		return err
	}

	if c.session.AdSet != nil && c.session.AdSet.CampaignID != campaign.ID {
		c.session.AdSet = nil
		c.session.Uploads = nil
	}
	c.session.Campaign = campaign
	c.persist(ctx)
	c.step = StepAdSet
	c.record(ctx, models.EventCampaignCreated, campaign.Name)
	return nil
}

// SubmitAdSet runs step 2. It requires a campaign from step 1.
func (c *Controller) SubmitAdSet(ctx context.Context, in AdSetInput) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.finishTransition(ctx, StepAdSet, err) }()

	if err := c.requireStep(StepAdSet); err != nil {
		return err
	}
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name", "ad set name is required")
	}
	campaignID := c.session.CampaignID()
	if campaignID == "" {
		return &apperr.PreconditionError{Missing: "campaign", Step: int(StepCampaign)}
	}
	req, err := c.adSetRequest(in, campaignID)
	if err != nil {
		return err
	}

	adSet, err := c.client.CreateAdSet(c.detach(ctx), req)
	if err != nil {
		return err
	}
	adSet.CampaignID = campaignID

	c.session.AdSet = adSet
	c.session.Uploads = nil
	c.persist(ctx)
	c.step = StepUpload
	c.record(ctx, models.EventAdSetCreated, adSet.Name)
	return nil
}

// SelectionResult reports what SelectFiles did with each file.
type SelectionResult struct {
	Accepted   []string `json:"accepted"`
	Duplicates []string `json:"duplicates,omitempty"`
	Rejected   []string `json:"rejected,omitempty"`
	// OverLimit lists files dropped because the batch is full.
	OverLimit  []string `json:"over_limit,omitempty"`
}

// SelectFiles adds files to the pending batch of step 3. Files with an
// unaccepted MIME type or over the size limit are rejected; a file with the
// same name and size as a pending one is skipped, and files beyond the
// batch limit are dropped.
func (c *Controller) SelectFiles(files []models.PendingFile) (SelectionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res SelectionResult
	if err := c.requireStep(StepUpload); err != nil {
		return res, err
	}

	accepted, rejected := upload.Filter(files, c.opts.AcceptedMIME)
	for _, f := range rejected {
		res.Rejected = append(res.Rejected, f.Name)
	}

	type fileKey struct {
		name string
		size int64
	}
	seen := make(map[fileKey]bool, len(c.pending))
	for _, f := range c.pending {
		seen[fileKey{f.Name, f.Size()}] = true
	}

	for _, f := range accepted {
		if c.opts.MaxUploadBytes > 0 && f.Size() > c.opts.MaxUploadBytes {
			res.Rejected = append(res.Rejected, f.Name)
			continue
		}
		key := fileKey{f.Name, f.Size()}
		if seen[key] {
			res.Duplicates = append(res.Duplicates, f.Name)
			continue
		}
		if c.opts.MaxBatchFiles > 0 && len(c.pending) >= c.opts.MaxBatchFiles {
			res.OverLimit = append(res.OverLimit, f.Name)
			continue
		}
		seen[key] = true
		if f.LocalRef == "" {
			f.LocalRef = c.newRef(f.Name)
		}
		c.pending = append(c.pending, f)
		res.Accepted = append(res.Accepted, f.Name)
	}
	return res, nil
}

// RemoveFile drops the pending file at index.
func (c *Controller) RemoveFile(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.pending) {
		return fmt.Errorf("pending file %d: %w", index, apperr.ErrNotFound)
	}
	c.pending = append(c.pending[:index], c.pending[index+1:]...)
	return nil
}

// SubmitUploads runs step 3. Every pending file is uploaded in order and
// recorded in the session. The wizard advances and the draft is persisted
// only when all uploads succeeded; otherwise it stays on step 3 with the
// files still pending so the batch can be retried.
func (c *Controller) SubmitUploads(ctx context.Context) (outcomes []models.UploadOutcome, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.finishTransition(ctx, StepUpload, err) }()

	if err := c.requireStep(StepUpload); err != nil {
		return nil, err
	}
	if c.session.AdSetID() == "" {
		return nil, &apperr.PreconditionError{Missing: "ad set", Step: int(StepAdSet)}
	}

	batch := append([]models.PendingFile(nil), c.pending...)
	c.resetProgress(len(batch))
	outcomes, err = c.pipeline.Run(c.detach(ctx), batch, func(done, total int) {
		c.uploadDone.Store(int64(done))
	})
	if err != nil {
		return nil, err
	}

	c.session.Uploads = outcomes
	fulfilled := 0
	for _, o := range outcomes {
		if o.Fulfilled() {
			fulfilled++
		}
	}
	c.record(ctx, models.EventUploadSettled, fmt.Sprintf("%d/%d fulfilled", fulfilled, len(outcomes)))

	if !models.AllFulfilled(outcomes) {
		c.logger.Info("upload batch incomplete, staying on upload step",
			zap.Int("fulfilled", fulfilled),
			zap.Int("total", len(outcomes)),
		)
		return outcomes, nil
	}

	c.persist(ctx)
	c.pending = nil
	c.step = StepReview
	return outcomes, nil
}

// Finalize runs step 4: creates the ad and, on success, clears the draft and
// resets the wizard. On failure the wizard and the draft are unchanged.
func (c *Controller) Finalize(ctx context.Context) (done *Completion, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.finishTransition(ctx, StepReview, err) }()

	if err := c.requireStep(StepReview); err != nil {
		return nil, err
	}
	adSetID := c.session.AdSetID()
	if adSetID == "" {
		return nil, &apperr.PreconditionError{Missing: "ad set", Step: int(StepAdSet)}
	}

	if err := c.client.CreateAd(c.detach(ctx), adSetID); err != nil {
		return nil, err
	}

	done = &Completion{CampaignID: c.session.CampaignID(), AdSetID: adSetID}
	c.record(ctx, models.EventAdCreated, "")
	if err := c.drafts.Clear(ctx, c.clientID); err != nil {
		c.logger.Warn("failed to clear draft after finalize", zap.Error(err))
	}
	c.reset()
	c.logger.Info("campaign creation completed",
		zap.String("campaign_id", done.CampaignID),
		zap.String("adset_id", done.AdSetID),
	)
	return done, nil
}

// Back moves to the previous step. It never touches the session or the
// draft. On step 1 it does nothing.
func (c *Controller) Back() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step > StepCampaign {
		c.step--
	}
	return c.stateLocked()
}

// JumpTo moves directly to step without running any step validation. With
// strict navigation only steps up to the one the session data allows, or
// the current one, can be reached.
func (c *Controller) JumpTo(step Step) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !step.Valid() {
		return c.stateLocked(), apperr.Validation("step", fmt.Sprintf("step must be between 1 and %d", TotalSteps))
	}
	if c.opts.StrictNavigation {
		if reachable := ResumeStep(c.session); step > reachable && step > c.step {
			return c.stateLocked(), apperr.Conflict("step %d is not reachable yet, complete step %d first", step, reachable)
		}
	}
	c.step = step
	return c.stateLocked(), nil
}

// Discard clears the draft and resets the wizard to an empty step 1.
func (c *Controller) Discard(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record(ctx, models.EventWizardDiscarded, "")
	c.reset()
	if err := c.drafts.Clear(ctx, c.clientID); err != nil {
		c.logger.Warn("failed to clear discarded draft", zap.Error(err))
	}
	return nil
}

// State returns a snapshot of the wizard.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Review renders the review screen of the current session.
func (c *Controller) Review() ReviewView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RenderReview(c.session)
}

// PendingCount returns the number of files waiting for upload.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Progress can be read while an upload batch is running.
func (c *Controller) Progress() Progress {
	return Progress{
		Completed: int(c.uploadDone.Load()),
		Total:     int(c.uploadTotal.Load()),
	}
}

func (c *Controller) stateLocked() State {
	pending := make([]models.FileMeta, len(c.pending))
	for i, f := range c.pending {
		pending[i] = f.Meta()
	}
	return State{
		Step:         c.step,
		StepName:     c.step.String(),
		TotalSteps:   TotalSteps,
		Session:      c.session.Clone(),
		PendingFiles: pending,
		Progress:     c.Progress(),
	}
}

func (c *Controller) requireStep(step Step) error {
	if c.step != step {
		return apperr.Conflict("the wizard is on step %d (%s), not step %d (%s)", c.step, c.step, step, step)
	}
	return nil
}

func (c *Controller) reset() {
	c.session = models.NewCreationSession()
	c.step = StepCampaign
	c.pending = nil
	c.resetProgress(0)
}

func (c *Controller) resetProgress(total int) {
	c.uploadDone.Store(0)
	c.uploadTotal.Store(int64(total))
}

// detach keeps request values but drops cancellation, so a remote call is
// not abandoned when the client goes away. The remote client applies its
// own timeout.
func (c *Controller) detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// persist saves the session. Persistence failures are logged only.
func (c *Controller) persist(ctx context.Context) {
	if err := c.drafts.Save(c.detach(ctx), c.clientID, c.session); err != nil {
		c.logger.Warn("failed to persist draft", zap.Error(err))
	}
}

func (c *Controller) finishTransition(ctx context.Context, step Step, err error) {
	c.metrics.RecordTransition(step.String(), err)
	if err == nil {
		return
	}
	c.logger.Warn("wizard step failed",
		zap.Stringer("step", step),
		zap.String("code", string(apperr.CodeOf(err))),
		zap.Error(err),
	)
	c.record(ctx, models.EventStepFailed, apperr.UserMessage(err))
}

func (c *Controller) record(ctx context.Context, typ models.WizardEventType, detail string) {
	if c.events == nil {
		return
	}
	ev := &models.WizardEvent{
		ID:         uuid.New().String(),
		ClientID:   c.clientID,
		Type:       typ,
		Step:       int(c.step),
		CampaignID: c.session.CampaignID(),
		AdSetID:    c.session.AdSetID(),
		Detail:     detail,
		Timestamp:  c.now().UTC(),
	}
	if err := c.events.Record(c.detach(ctx), ev); err != nil {
		c.logger.Warn("failed to record wizard event",
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}
