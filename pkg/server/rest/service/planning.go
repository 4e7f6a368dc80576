package service

import (
	"context"

	"github.com/hoppss/path-planner/domain"
	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/executive"
	"github.com/hoppss/path-planner/pkg/util"
)

// PlanningService adapts the executive to the REST layer.
type PlanningService struct {
	exec *executive.Executive
}

func NewPlanningService(exec *executive.Executive) *PlanningService {
	return &PlanningService{exec: exec}
}

func (s *PlanningService) AddRibbon(ctx context.Context, x1, y1, x2, y2 float64) error {
	s.exec.AddRibbon(x1, y1, x2, y2)
	return nil
}

func (s *PlanningService) ClearRibbons(ctx context.Context) error {
	s.exec.ClearRibbons()
	return nil
}

func (s *PlanningService) UpdateVehicleState(ctx context.Context, x, y, heading, speed, t float64) error {
	s.exec.UpdateCovered(x, y, heading, speed, t)
	return nil
}

func (s *PlanningService) UpdateContact(ctx context.Context, id uint32, state datastructure.State) error {
	s.exec.UpdateDynamicObstacle(id, state)
	return nil
}

func (s *PlanningService) RemoveContact(ctx context.Context, id uint32) error {
	s.exec.RemoveDynamicObstacle(id)
	return nil
}

func (s *PlanningService) RefreshMap(ctx context.Context, path string, lat, lon float64) error {
	s.exec.RefreshMap(path, lat, lon)
	return nil
}

func (s *PlanningService) Pause(ctx context.Context) error {
	s.exec.Pause()
	return nil
}

func (s *PlanningService) Resume(ctx context.Context) error {
	if err := s.exec.Err(); err != nil {
		return domain.WrapErrorf(err, domain.ErrInternalServerError,
			"planner stopped on an error, restart it before resuming")
	}
	s.exec.Unpause()
	return nil
}

func (s *PlanningService) Configure(ctx context.Context, cfg executive.VehicleConfig) error {
	if cfg.TimeMinimum > cfg.TimeHorizon {
		return domain.NewErrorf(domain.ErrBadParamInput,
			"time minimum %.2f exceeds time horizon %.2f", cfg.TimeMinimum, cfg.TimeHorizon)
	}
	s.exec.SetVehicleConfiguration(cfg)
	return nil
}

// CurrentPlan returns the latest plan as an encoded polyline plus summary
// numbers.
func (s *PlanningService) CurrentPlan(ctx context.Context) (string, bool, float64, float64, error) {
	plan := s.exec.CurrentPlan()
	if plan.Empty() {
		return "", false, 0, 0, domain.NewErrorf(domain.ErrNotFound, "no plan has been published yet")
	}
	return plan.Polyline(), plan.Done,
		util.RoundFloat(plan.EndTime(), 2),
		util.RoundFloat(plan.TotalCost(), 2), nil
}

// Status reports the executive's gate state and remaining coverage work.
func (s *PlanningService) Status(ctx context.Context) (bool, int, float64, string, error) {
	count, uncovered := s.exec.RibbonsRemaining()
	errText := ""
	if err := s.exec.Err(); err != nil {
		errText = err.Error()
	}
	return s.exec.Paused(), count, util.RoundFloat(uncovered, 2), errText, nil
}
