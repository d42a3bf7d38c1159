package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/habits"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/repomanager"
)

// HabitRequest is the body of habit create and update calls.
type HabitRequest struct {
	Title           string              `json:"title"`
	Description     *string             `json:"description"`
	Priority        models.Priority     `json:"priority"`
	Frequency       models.Frequency    `json:"frequency"`
	TrackingMode    models.TrackingMode `json:"trackingMode"`
	PositiveCounter *int64              `json:"positiveCounter"`
	NegativeCounter *int64              `json:"negativeCounter"`
}

type HabitService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewHabitService(db dbx.DBTX, m repomanager.RepositoryManager, log logging.Logger) *HabitService {
	return &HabitService{db: db, repomanager: m, log: log.With("module", "habits")}
}

// Create stores a new habit. Omitted tracking mode means Both, omitted
// frequency means Daily, and tracked counters start at zero.
func (s *HabitService) Create(ctx context.Context, userID string, req HabitRequest) (*models.Habit, error) {
	if req.TrackingMode == "" {
		req.TrackingMode = models.TrackingBoth
	}
	if req.Frequency == "" {
		req.Frequency = models.FrequencyDaily
	}
	if req.TrackingMode.TracksPositive() && req.PositiveCounter == nil {
		req.PositiveCounter = new(int64)
	}
	if req.TrackingMode.TracksNegative() && req.NegativeCounter == nil {
		req.NegativeCounter = new(int64)
	}
	if err := validateHabit(req); err != nil {
		return nil, err
	}

	h := habitFromRequest(userID, req)
	if err := s.repomanager.Habits(s.db).Create(ctx, h); err != nil {
		return nil, s.internal(ctx, "habit create failed", err)
	}
	return h, nil
}

func (s *HabitService) Get(ctx context.Context, userID string, id int64) (*models.Habit, error) {
	h, err := s.repomanager.Habits(s.db).Get(ctx, userID, id)
	if err != nil {
		return nil, s.mapErr(ctx, "habit get failed", err)
	}
	return h, nil
}

func (s *HabitService) List(ctx context.Context, userID string, p ListParams) (*Page[models.Habit], error) {
	q, err := p.toQuery(habits.SortColumns)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repomanager.Habits(s.db).List(ctx, userID, q)
	if err != nil {
		return nil, s.internal(ctx, "habit list failed", err)
	}
	return newPage(q, total, items), nil
}

// Update replaces the habit. The counter rule is strict here: every tracked
// counter must be supplied and every untracked one omitted.
func (s *HabitService) Update(ctx context.Context, userID string, id int64, req HabitRequest) (*models.Habit, error) {
	if err := validateHabit(req); err != nil {
		return nil, err
	}

	h := habitFromRequest(userID, req)
	h.ID = id
	if err := s.repomanager.Habits(s.db).Update(ctx, h); err != nil {
		return nil, s.mapErr(ctx, "habit update failed", err)
	}
	return h, nil
}

func (s *HabitService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.repomanager.Habits(s.db).Delete(ctx, userID, id); err != nil {
		return s.mapErr(ctx, "habit delete failed", err)
	}
	return nil
}

func (s *HabitService) mapErr(ctx context.Context, msg string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return s.internal(ctx, msg, err)
}

func (s *HabitService) internal(ctx context.Context, msg string, err error) error {
	s.log.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

func validateHabit(req HabitRequest) error {
	v := &validator{}
	if v.required("title", req.Title) {
		v.maxLen("title", req.Title, 200)
	}
	v.optionalMaxLen("description", req.Description, 1000)
	if !req.Priority.Valid() {
		v.add("priority", "priority must be Low, Medium or High.")
	}
	if !req.Frequency.Valid() {
		v.add("frequency", "frequency must be Daily, Weekly, Monthly or NoFrequency.")
	}
	validateCounters(v, req)
	return v.err()
}

// validateCounters enforces that the tracking mode selects at least one
// counter, that selected counters are present and non-negative, and that
// unselected counters are absent.
func validateCounters(v *validator, req HabitRequest) {
	pos, neg := req.TrackingMode.TracksPositive(), req.TrackingMode.TracksNegative()
	if !pos && !neg {
		v.add("trackingMode", "Tracking mode must include at least one counter.")
		return
	}

	switch {
	case pos && req.PositiveCounter == nil:
		v.add("positiveCounter", "PositiveCounter is required when tracking positive outcomes.")
	case !pos && req.PositiveCounter != nil:
		v.add("positiveCounter", "PositiveCounter must be omitted when the habit does not track positive outcomes.")
	case pos && *req.PositiveCounter < 0:
		v.add("positiveCounter", "PositiveCounter must not be negative.")
	}

	switch {
	case neg && req.NegativeCounter == nil:
		v.add("negativeCounter", "NegativeCounter is required when tracking negative outcomes.")
	case !neg && req.NegativeCounter != nil:
		v.add("negativeCounter", "NegativeCounter must be omitted when the habit does not track negative outcomes.")
	case neg && *req.NegativeCounter < 0:
		v.add("negativeCounter", "NegativeCounter must not be negative.")
	}
}

func habitFromRequest(userID string, req HabitRequest) *models.Habit {
	return &models.Habit{
		UserID:          userID,
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		Frequency:       req.Frequency,
		TrackingMode:    req.TrackingMode,
		PositiveCounter: req.PositiveCounter,
		NegativeCounter: req.NegativeCounter,
	}
}
