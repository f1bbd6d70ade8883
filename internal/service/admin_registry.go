package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskbot/internal/model"
	"taskbot/internal/repository"
)

// AdminRegistry answers authority questions. Membership is the union of an
// immutable bootstrap set (from static configuration, by ID or by handle) and
// a mutable, persisted dynamic set. Constructed once at startup and passed by
// reference; there is no process-wide admin state.
type AdminRegistry struct {
	ids     map[int64]struct{}
	handles map[string]struct{}
	grants  *repository.AdminRepository
	log     zerolog.Logger
}

// NewAdminRegistry parses the configured bootstrap IDs and handles. Entries
// that fail to parse are logged and dropped rather than failing startup.
func NewAdminRegistry(rawIDs []string, rawHandles []string, grants *repository.AdminRepository, log zerolog.Logger) *AdminRegistry {
	reg := &AdminRegistry{
		ids:     make(map[int64]struct{}, len(rawIDs)),
		handles: make(map[string]struct{}, len(rawHandles)),
		grants:  grants,
		log:     log.With().Str("component", "admin_registry").Logger(),
	}

	for _, raw := range rawIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			reg.log.Warn().Str("value", raw).Msg("skipping non-numeric bootstrap admin id")
			continue
		}
		reg.ids[id] = struct{}{}
	}

	for _, raw := range rawHandles {
		h := normalizeHandle(raw)
		if h == "" {
			continue
		}
		reg.handles[h] = struct{}{}
	}

	reg.log.Info().
		Int("bootstrap_ids", len(reg.ids)).
		Int("bootstrap_handles", len(reg.handles)).
		Msg("admin registry initialized")
	return reg
}

// IsBootstrap reports bootstrap membership by ID only. Handle-matched members
// are bootstrap too, but a handle can change hands, so only the ID form is
// used for revocation protection.
func (r *AdminRegistry) IsBootstrap(userID int64) bool {
	_, ok := r.ids[userID]
	return ok
}

// IsAuthority reports whether the user holds admin authority, by bootstrap ID,
// bootstrap handle (case-insensitive, leading @ stripped), or dynamic grant.
func (r *AdminRegistry) IsAuthority(ctx context.Context, userID int64, handle string) (bool, error) {
	if r.IsBootstrap(userID) {
		return true, nil
	}
	if h := normalizeHandle(handle); h != "" {
		if _, ok := r.handles[h]; ok {
			return true, nil
		}
	}
	ok, err := r.grants.Exists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check dynamic grant: %w", err)
	}
	return ok, nil
}

// Grant adds userID to the dynamic set. Granting a bootstrap member or an
// already-granted user is a no-op.
func (r *AdminRegistry) Grant(ctx context.Context, targetID, grantedBy int64) error {
	if r.IsBootstrap(targetID) {
		r.log.Debug().Int64("target", targetID).Msg("grant skipped, already bootstrap")
		return nil
	}
	if err := r.grants.Grant(ctx, targetID, grantedBy); err != nil {
		return err
	}
	r.log.Info().Int64("target", targetID).Int64("granted_by", grantedBy).Msg("admin granted")
	return nil
}

// Revoke removes userID from the dynamic set. Bootstrap members are protected
// and return ErrProtected; a missing grant returns ErrNotFound.
func (r *AdminRegistry) Revoke(ctx context.Context, targetID int64) error {
	if r.IsBootstrap(targetID) {
		return ErrProtected
	}
	if err := r.grants.Revoke(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	r.log.Info().Int64("target", targetID).Msg("admin revoked")
	return nil
}

// BootstrapIDs returns the configured bootstrap admin IDs in ascending order.
// Used as the recipient list for rollover summaries.
func (r *AdminRegistry) BootstrapIDs() []int64 {
	ids := make([]int64, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BootstrapHandles returns the normalized bootstrap handles, sorted.
func (r *AdminRegistry) BootstrapHandles() []string {
	handles := make([]string, 0, len(r.handles))
	for h := range r.handles {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles
}

// ListDynamic returns the persisted dynamic grants with metadata for audit.
func (r *AdminRegistry) ListDynamic(ctx context.Context) ([]model.AdminGrant, error) {
	return r.grants.ListAll(ctx)
}

func normalizeHandle(h string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h)), "@")
}
