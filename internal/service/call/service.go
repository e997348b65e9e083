package call

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homelink-backend/internal/domain"
	"homelink-backend/internal/repository/postgres"
	apperrors "homelink-backend/pkg/errors"
	"homelink-backend/pkg/logger"
	"homelink-backend/pkg/metrics"
)

// CallRepository interface
type CallRepository interface {
	Create(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	UpdateStatusFrom(ctx context.Context, callID uuid.UUID, from []domain.CallStatus, to domain.CallStatus, startedAt, endedAt *time.Time, duration *int) (*domain.Call, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.Call, error)
}

// UserRepository interface
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// NotificationSink delivers an event to a single user's live session.
// It reports whether the event actually reached a session; false means
// the user was offline or their session could not keep up.
type NotificationSink interface {
	Notify(userID uuid.UUID, event string, payload any) bool
}

// Service owns the call lifecycle. All status transitions go through it:
// it serializes transitions per call id in-process and relies on the
// repository's guarded update so concurrent transitions cannot both win.
type Service struct {
	callRepo    CallRepository
	userRepo    UserRepository
	sink        NotificationSink
	metrics     *metrics.Metrics
	ringTimeout time.Duration

	locks callLocks

	timerMu    sync.Mutex
	ringTimers map[uuid.UUID]*time.Timer
}

// NewService creates a new call service
func NewService(callRepo CallRepository, userRepo UserRepository, sink NotificationSink, m *metrics.Metrics, ringTimeout time.Duration) *Service {
	return &Service{
		callRepo:    callRepo,
		userRepo:    userRepo,
		sink:        sink,
		metrics:     m,
		ringTimeout: ringTimeout,
		ringTimers:  make(map[uuid.UUID]*time.Timer),
	}
}

// callLocks hands out one mutex per call id, released when no goroutine
// holds or waits on it
type callLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *callLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[uuid.UUID]*lockEntry)
	}
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}

// InitiateInput contains the parameters of a new call
type InitiateInput struct {
	CallerID   uuid.UUID
	ReceiverID uuid.UUID
	Kind       domain.CallKind
}

// InitiateOutput is the created call plus whether the receiver's session
// could be reached
type InitiateOutput struct {
	Call             *domain.Call
	ReceiverNotified bool
}

// incomingCallNotice is the ring event pushed to the receiver. The caller is
// embedded by id and username so the client can show who is calling.
type incomingCallNotice struct {
	CallID    uuid.UUID       `json:"call_id"`
	Caller    callParty       `json:"caller"`
	Kind      domain.CallKind `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
}

type callParty struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Initiate creates a call and rings the receiver. The call record is created
// even when the receiver is offline; the caller learns about the offline
// receiver through a separate notice and the ring timer will mark the call
// missed.
func (s *Service) Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error) {
	// 1. Validate participants
	if input.CallerID == input.ReceiverID {
		return nil, apperrors.InvalidArgumentError("cannot call yourself")
	}
	if input.Kind == "" {
		input.Kind = domain.CallKindVoice
	}
	if input.Kind != domain.CallKindVoice && input.Kind != domain.CallKindVideo {
		return nil, apperrors.InvalidArgumentError("unknown call kind")
	}

	if _, err := s.userRepo.GetByID(ctx, input.ReceiverID); err != nil {
		if apperrors.IsCode(err, apperrors.CodeUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to check receiver: %w", err)
	}
	caller, err := s.userRepo.GetByID(ctx, input.CallerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load caller: %w", err)
	}

	// 2. Persist in the transient creation status
	call := &domain.Call{
		CallID:     uuid.New(),
		CallerID:   input.CallerID,
		ReceiverID: input.ReceiverID,
		Kind:       input.Kind,
		Status:     domain.CallInitiating,
	}
	if err := s.callRepo.Create(ctx, call); err != nil {
		return nil, fmt.Errorf("failed to create call: %w", err)
	}
	s.metrics.RecordCallStatus(string(domain.CallInitiating))

	// 3. Advance to ringing in the same operation
	call, err = s.transition(ctx, call.CallID,
		[]domain.CallStatus{domain.CallInitiating}, domain.CallRinging, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	// 4. Ring the receiver and arm the missed-call timer
	notified := s.sink.Notify(call.ReceiverID, domain.EventIncomingCall, &incomingCallNotice{
		CallID:    call.CallID,
		Caller:    callParty{ID: caller.UserID, Username: caller.Username},
		Kind:      call.Kind,
		Timestamp: time.Now(),
	})
	if !notified {
		s.sink.Notify(call.CallerID, domain.EventRecipientOffline, map[string]any{
			"call_id": call.CallID,
			"user_id": call.ReceiverID,
		})
	}
	s.armRingTimer(call.CallID)

	logger.Info("call initiated",
		zap.String("call_id", call.CallID.String()),
		zap.String("caller_id", call.CallerID.String()),
		zap.String("receiver_id", call.ReceiverID.String()),
		zap.Bool("receiver_notified", notified))

	return &InitiateOutput{Call: call, ReceiverNotified: notified}, nil
}

// Respond accepts or rejects a ringing call. Only the receiver may respond.
func (s *Service) Respond(ctx context.Context, callID, userID uuid.UUID, accept bool) (*domain.Call, error) {
	unlock := s.locks.lock(callID)
	defer unlock()

	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.ReceiverID != userID {
		return nil, apperrors.ForbiddenError("only the receiver can respond to a call")
	}

	from := []domain.CallStatus{domain.CallInitiating, domain.CallRinging}
	now := time.Now()

	var updated *domain.Call
	if accept {
		updated, err = s.transition(ctx, callID, from, domain.CallAnswered, &now, nil, nil)
	} else {
		updated, err = s.transition(ctx, callID, from, domain.CallRejected, nil, &now, nil)
	}
	if err != nil {
		return nil, err
	}

	s.cancelRingTimer(callID)
	if accept {
		s.metrics.CallAnswered()
	}

	s.notifyBoth(updated, domain.EventCallStatusChanged)

	logger.Info("call responded",
		zap.String("call_id", callID.String()),
		zap.Bool("accepted", accept))

	return updated, nil
}

// End hangs up a call. Either participant may end it at any non-terminal
// point; a call ended before it was answered carries no duration.
func (s *Service) End(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, error) {
	unlock := s.locks.lock(callID)
	defer unlock()

	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !call.HasParticipant(userID) {
		return nil, apperrors.ForbiddenError("not a participant of this call")
	}

	now := time.Now()
	var duration *int
	if call.StartedAt != nil {
		secs := int(now.Sub(*call.StartedAt).Seconds())
		duration = &secs
	}

	from := []domain.CallStatus{domain.CallInitiating, domain.CallRinging, domain.CallAnswered}
	updated, err := s.transition(ctx, callID, from, domain.CallEnded, nil, &now, duration)
	if err != nil {
		return nil, err
	}

	s.cancelRingTimer(callID)
	if call.Status == domain.CallAnswered {
		s.metrics.CallFinished()
	}

	s.notifyBoth(updated, domain.EventCallEnded)

	logger.Info("call ended",
		zap.String("call_id", callID.String()),
		zap.String("ended_by", userID.String()))

	return updated, nil
}

// GetByID returns a call; only its participants may see it
func (s *Service) GetByID(ctx context.Context, callID, userID uuid.UUID) (*domain.Call, error) {
	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !call.HasParticipant(userID) {
		return nil, apperrors.ForbiddenError("not a participant of this call")
	}
	return call, nil
}

// History returns the user's calls, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error) {
	return s.callRepo.ListByParticipant(ctx, userID, limit, offset)
}

// Active returns the user's currently answered calls
func (s *Service) Active(ctx context.Context, userID uuid.UUID) ([]*domain.Call, error) {
	return s.callRepo.ListActive(ctx, userID)
}

// transition runs the guarded status update and maps a guard failure to
// NotFound or InvalidState by re-reading the row
func (s *Service) transition(
	ctx context.Context,
	callID uuid.UUID,
	from []domain.CallStatus,
	to domain.CallStatus,
	startedAt, endedAt *time.Time,
	duration *int,
) (*domain.Call, error) {
	updated, err := s.callRepo.UpdateStatusFrom(ctx, callID, from, to, startedAt, endedAt, duration)
	if err == nil {
		s.metrics.RecordCallStatus(string(to))
		return updated, nil
	}
	if !errors.Is(err, postgres.ErrTransitionConflict) {
		return nil, err
	}

	current, readErr := s.callRepo.GetByID(ctx, callID)
	if readErr != nil {
		return nil, readErr
	}
	return nil, apperrors.InvalidStateError(
		fmt.Sprintf("call is %s, cannot transition to %s", current.Status, to))
}

func (s *Service) notifyBoth(call *domain.Call, event string) {
	s.sink.Notify(call.CallerID, event, call)
	s.sink.Notify(call.ReceiverID, event, call)
}

func (s *Service) armRingTimer(callID uuid.UUID) {
	if s.ringTimeout <= 0 {
		return
	}
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.ringTimers[callID] = time.AfterFunc(s.ringTimeout, func() {
		s.markMissed(callID)
	})
}

func (s *Service) cancelRingTimer(callID uuid.UUID) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if t, ok := s.ringTimers[callID]; ok {
		t.Stop()
		delete(s.ringTimers, callID)
	}
}

// markMissed fires when the ring timer expires. Losing the race against a
// concurrent answer or hang-up is the expected outcome, not an error.
func (s *Service) markMissed(callID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	unlock := s.locks.lock(callID)
	defer unlock()

	s.timerMu.Lock()
	delete(s.ringTimers, callID)
	s.timerMu.Unlock()

	now := time.Now()
	updated, err := s.callRepo.UpdateStatusFrom(ctx, callID,
		[]domain.CallStatus{domain.CallRinging}, domain.CallMissed, nil, &now, nil)
	if err != nil {
		if !errors.Is(err, postgres.ErrTransitionConflict) {
			logger.Error("failed to mark call missed",
				zap.String("call_id", callID.String()), zap.Error(err))
		}
		return
	}

	s.metrics.RecordCallStatus(string(domain.CallMissed))
	s.notifyBoth(updated, domain.EventCallStatusChanged)

	logger.Info("call missed", zap.String("call_id", callID.String()))
}

// Shutdown stops all pending ring timers
func (s *Service) Shutdown() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	for id, t := range s.ringTimers {
		t.Stop()
		delete(s.ringTimers, id)
	}
}
