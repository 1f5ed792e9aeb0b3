// Package featureflags manages rollout flags and evaluates them for end users.
package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/listing"
	"github.com/unidate/unidate-admin/internal/metrics"
	"github.com/unidate/unidate-admin/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,127}$`)

// Environments a flag can belong to.
var environments = map[string]struct{}{"development": {}, "staging": {}, "production": {}}

// Input carries the writable flag fields. Nil fields are left unchanged on update.
type Input struct {
	Key                string    `json:"key"`
	Name               *string   `json:"name"`
	Description        *string   `json:"description"`
	Environment        *string   `json:"environment"`
	Enabled            *bool     `json:"enabled"`
	RolloutPercentage  *int      `json:"rolloutPercentage"`
	TargetUniversities *[]string `json:"targetUniversities"`
}

// Evaluation explains a flag decision.
type Evaluation struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
	Bucket  int    `json:"bucket"`
	Reason  string `json:"reason"` // disabled, other_environment, not_targeted, outside_rollout or rollout.
}

// Service manages feature flags.
type Service struct {
	client      *baas.Client
	environment string
	now         func() time.Time
}

// NewService returns a Service that evaluates flags for the given deploy environment.
// An empty environment means production.
func NewService(client *baas.Client, environment string) *Service {
	environment = strings.ToLower(strings.TrimSpace(environment))
	if environment == "" {
		environment = "production"
	}
	return &Service{client: client, environment: environment, now: time.Now}
}

// List returns every flag ordered by key.
func (s *Service) List(ctx context.Context) ([]models.FeatureFlag, error) {
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var flags []models.FeatureFlag
	if errFind := s.client.DB.WithContext(callCtx).Order("key ASC").Find(&flags).Error; errFind != nil {
		return nil, apperr.Wrap(apperr.KindRead, "featureflags.List", "load flags failed", errFind)
	}
	return flags, nil
}

// Get returns one flag.
func (s *Service) Get(ctx context.Context, key string) (models.FeatureFlag, error) {
	const op = "featureflags.Get"
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var flag models.FeatureFlag
	if errFind := s.client.DB.WithContext(callCtx).Where("key = ?", strings.TrimSpace(key)).Take(&flag).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.FeatureFlag{}, apperr.New(apperr.KindNotFound, op, "feature flag not found")
		}
		return models.FeatureFlag{}, apperr.Wrap(apperr.KindRead, op, "load flag failed", errFind)
	}
	return flag, nil
}

// Create adds a flag. Key and name are required.
func (s *Service) Create(ctx context.Context, in Input, actorUID string) (models.FeatureFlag, error) {
	const op = "featureflags.Create"
	key := strings.ToLower(strings.TrimSpace(in.Key))
	if !keyPattern.MatchString(key) {
		return models.FeatureFlag{}, apperr.New(apperr.KindInvalid, op, "key must be lowercase letters, digits, dot, dash or underscore")
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return models.FeatureFlag{}, apperr.New(apperr.KindInvalid, op, "name is required")
	}
	flag := models.FeatureFlag{Key: key, Environment: "production", TargetUniversities: datatypes.JSON("[]")}
	if errApply := applyInput(&flag, in); errApply != nil {
		return models.FeatureFlag{}, errApply
	}
	flag.UpdatedBy = actorUID

	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var count int64
	if errCount := s.client.DB.WithContext(callCtx).Model(&models.FeatureFlag{}).Where("key = ?", key).Count(&count).Error; errCount != nil {
		return models.FeatureFlag{}, apperr.Wrap(apperr.KindRead, op, "check flag failed", errCount)
	}
	if count > 0 {
		return models.FeatureFlag{}, apperr.New(apperr.KindConflict, op, "feature flag already exists")
	}
	if errCreate := s.client.DB.WithContext(callCtx).Create(&flag).Error; errCreate != nil {
		return models.FeatureFlag{}, apperr.Wrap(apperr.KindWrite, op, "create flag failed", errCreate)
	}
	metrics.RecordAction("feature_flags", "create", true)
	log.WithFields(log.Fields{"flag": key, "actor": actorUID}).Info("feature flag created")
	return flag, nil
}

// Update merges the supplied fields into a flag.
func (s *Service) Update(ctx context.Context, key string, in Input, actorUID string) (models.FeatureFlag, error) {
	const op = "featureflags.Update"
	flag, err := s.Get(ctx, key)
	if err != nil {
		return models.FeatureFlag{}, err
	}
	if errApply := applyInput(&flag, in); errApply != nil {
		return models.FeatureFlag{}, errApply
	}
	updates := map[string]any{
		"name":                flag.Name,
		"description":         flag.Description,
		"environment":         flag.Environment,
		"enabled":             flag.Enabled,
		"rollout_percentage":  flag.RolloutPercentage,
		"target_universities": flag.TargetUniversities,
		"updated_by":          actorUID,
		"updated_at":          s.now().UTC(),
	}
	if errUpdate := s.save(ctx, op, flag.Key, updates); errUpdate != nil {
		return models.FeatureFlag{}, errUpdate
	}
	metrics.RecordAction("feature_flags", "update", true)
	log.WithFields(log.Fields{"flag": flag.Key, "actor": actorUID}).Info("feature flag updated")
	return s.Get(ctx, flag.Key)
}

// Toggle flips a flag on or off.
func (s *Service) Toggle(ctx context.Context, key string, enabled bool, actorUID string) (listing.ActionResult, error) {
	const op = "featureflags.Toggle"
	key = strings.TrimSpace(key)
	updates := map[string]any{"enabled": enabled, "updated_by": actorUID, "updated_at": s.now().UTC()}
	if errUpdate := s.save(ctx, op, key, updates); errUpdate != nil {
		return listing.ActionResult{}, errUpdate
	}
	action := "disable"
	if enabled {
		action = "enable"
	}
	metrics.RecordAction("feature_flags", action, true)
	log.WithFields(log.Fields{"flag": key, "enabled": enabled, "actor": actorUID}).Info("feature flag toggled")
	return listing.Persisted(action, key, ""), nil
}

// Delete removes a flag.
func (s *Service) Delete(ctx context.Context, key string, actorUID string) (listing.ActionResult, error) {
	const op = "featureflags.Delete"
	key = strings.TrimSpace(key)
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	res := s.client.DB.WithContext(callCtx).Where("key = ?", key).Delete(&models.FeatureFlag{})
	if res.Error != nil {
		return listing.ActionResult{}, apperr.Wrap(apperr.KindWrite, op, "delete flag failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return listing.ActionResult{}, apperr.New(apperr.KindNotFound, op, "feature flag not found")
	}
	metrics.RecordAction("feature_flags", "delete", true)
	log.WithFields(log.Fields{"flag": key, "actor": actorUID}).Info("feature flag deleted")
	return listing.Persisted("delete", key, ""), nil
}

// Evaluate decides whether the flag is on for a user in the service's environment.
func (s *Service) Evaluate(ctx context.Context, key, uid, university string) (Evaluation, error) {
	flag, err := s.Get(ctx, key)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluate(flag, s.environment, uid, university), nil
}

// Evaluate applies enabled AND environment AND targeting AND rollout bucket to a loaded flag.
// A flag only turns on in the environment it belongs to.
func Evaluate(flag models.FeatureFlag, environment, uid, university string) Evaluation {
	ev := Evaluation{Key: flag.Key, Bucket: Bucket(flag.Key, uid)}
	switch {
	case !flag.Enabled:
		ev.Reason = "disabled"
	case !strings.EqualFold(flag.Environment, environment):
		ev.Reason = "other_environment"
	case !targets(flag, university):
		ev.Reason = "not_targeted"
	case ev.Bucket >= flag.RolloutPercentage:
		ev.Reason = "outside_rollout"
	default:
		ev.Enabled = true
		ev.Reason = "rollout"
	}
	return ev
}

// Bucket maps a user to 0..99, stable per flag.
func Bucket(key, uid string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(uid))
	return int(h.Sum32() % 100)
}

func targets(flag models.FeatureFlag, university string) bool {
	list := universities(flag.TargetUniversities)
	if len(list) == 0 {
		return true
	}
	university = strings.TrimSpace(university)
	for _, u := range list {
		if strings.EqualFold(u, university) {
			return true
		}
	}
	return false
}

func universities(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if errUnmarshal := json.Unmarshal(raw, &out); errUnmarshal != nil {
		return nil
	}
	return out
}

func applyInput(flag *models.FeatureFlag, in Input) error {
	const op = "featureflags.apply"
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.New(apperr.KindInvalid, op, "name must not be empty")
		}
		flag.Name = name
	}
	if in.Description != nil {
		flag.Description = strings.TrimSpace(*in.Description)
	}
	if in.Environment != nil {
		env := strings.ToLower(strings.TrimSpace(*in.Environment))
		if _, ok := environments[env]; !ok {
			return apperr.New(apperr.KindInvalid, op, "unknown environment "+env)
		}
		flag.Environment = env
	}
	if in.Enabled != nil {
		flag.Enabled = *in.Enabled
	}
	if in.RolloutPercentage != nil {
		if *in.RolloutPercentage < 0 || *in.RolloutPercentage > 100 {
			return apperr.New(apperr.KindInvalid, op, "rolloutPercentage must be between 0 and 100")
		}
		flag.RolloutPercentage = *in.RolloutPercentage
	}
	if in.TargetUniversities != nil {
		cleaned := make([]string, 0, len(*in.TargetUniversities))
		seen := make(map[string]struct{})
		for _, u := range *in.TargetUniversities {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			if _, dup := seen[strings.ToLower(u)]; dup {
				continue
			}
			seen[strings.ToLower(u)] = struct{}{}
			cleaned = append(cleaned, u)
		}
		raw, errMarshal := json.Marshal(cleaned)
		if errMarshal != nil {
			return apperr.Wrap(apperr.KindInternal, op, "encode targets failed", errMarshal)
		}
		flag.TargetUniversities = datatypes.JSON(raw)
	}
	return nil
}

func (s *Service) save(ctx context.Context, op, key string, updates map[string]any) error {
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	res := s.client.DB.WithContext(callCtx).Model(&models.FeatureFlag{}).Where("key = ?", key).Updates(updates)
	if res.Error != nil {
		return apperr.Wrap(apperr.KindWrite, op, "save flag failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, op, "feature flag not found")
	}
	return nil
}
