package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	levelrolesservice "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/application"
	levelrolesdomain "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/domain"
	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	settingsservice "github.com/Black-And-White-Club/levelbot/app/modules/settings/application"
	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

// SettingsService is the part of the settings module the API calls.
type SettingsService interface {
	GetGuildSettings(ctx context.Context, guildID sharedtypes.GuildID) (settingsservice.SettingsResult, error)
	UpdateGuildSettings(ctx context.Context, guildID sharedtypes.GuildID, patch settingsdomain.SettingsPatch) (settingsservice.SettingsResult, error)
	AddAllowedChannel(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (settingsservice.ChannelsResult, error)
	RemoveAllowedChannel(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (settingsservice.ChannelsResult, error)
	ListAllowedChannels(ctx context.Context, guildID sharedtypes.GuildID) (settingsservice.ChannelsResult, error)
	IsCommandAllowed(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (bool, error)
}

// ScoreService is the part of the score module the API calls.
type ScoreService interface {
	TopUsers(ctx context.Context, guildID sharedtypes.GuildID, limit int) (scoreservice.LeaderboardResult, error)
	GetStanding(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (scoreservice.StandingResult, error)
	SetXP(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, xp int64) (scoreservice.XPChangeResult, error)
}

// DecayRunner runs a manual decay pass under the scheduler's in-flight guard.
// ran is false when a decay pass was already running.
type DecayRunner interface {
	DecayGuild(ctx context.Context, guildID sharedtypes.GuildID) (result scoreservice.DecayResult, ran bool, err error)
}

// LevelRolesService is the part of the level roles module the API calls.
type LevelRolesService interface {
	UpsertLevelRole(ctx context.Context, mapping levelrolesdomain.Mapping) (levelrolesservice.MappingResult, error)
	DeleteLevelRole(ctx context.Context, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) (levelrolesservice.DeleteResult, error)
	ListLevelRoles(ctx context.Context, guildID sharedtypes.GuildID) (levelrolesservice.MappingsResult, error)
}

// Handlers serves the guild-scoped admin routes.
type Handlers struct {
	settings SettingsService
	score    ScoreService
	roles    LevelRolesService
	decay    DecayRunner
	logger   *slog.Logger
}

func NewHandlers(settings SettingsService, score ScoreService, roles LevelRolesService, decay DecayRunner, logger *slog.Logger) *Handlers {
	return &Handlers{settings: settings, score: score, roles: roles, decay: decay, logger: logger}
}

// Routes mounts the handlers on a router whose pattern already binds {guildID}.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.PatchSettings)

	r.Get("/leaderboard", h.GetLeaderboard)
	r.Get("/leaderboard.xlsx", h.ExportLeaderboard)
	r.Get("/users/{userID}/xp", h.GetUserXP)
	r.Put("/users/{userID}/xp", h.PutUserXP)
	r.Post("/decay", h.RunDecay)

	r.Get("/level-roles", h.ListLevelRoles)
	r.Put("/level-roles/{roleID}", h.PutLevelRole)
	r.Delete("/level-roles/{roleID}", h.DeleteLevelRole)

	r.Get("/command-channels", h.ListCommandChannels)
	r.Get("/command-channels/{channelID}", h.GetCommandChannel)
	r.Put("/command-channels/{channelID}", h.PutCommandChannel)
	r.Delete("/command-channels/{channelID}", h.DeleteCommandChannel)
}

func guildParam(r *http.Request) sharedtypes.GuildID {
	return sharedtypes.GuildID(chi.URLParam(r, "guildID"))
}

// internalError logs err and answers 500 without exposing it.
func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), "Admin API operation failed",
		attr.String("operation", op),
		attr.GuildID(guildParam(r)),
		attr.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	result, err := h.settings.GetGuildSettings(r.Context(), guildParam(r))
	if err != nil {
		h.internalError(w, r, "get_settings", err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	writeJSON(w, http.StatusOK, result.Success)
}

func (h *Handlers) PatchSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	patch, err := settingsdomain.DecodeSettingsPatch(body)
	if err != nil {
		writeFailure(w, err)
		return
	}

	result, err := h.settings.UpdateGuildSettings(r.Context(), guildParam(r), patch)
	if err != nil {
		h.internalError(w, r, "update_settings", err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	writeJSON(w, http.StatusOK, result.Success)
}

// LeaderboardEntry is one ranked row of the leaderboard response.
type LeaderboardEntry struct {
	Rank   int                `json:"rank"`
	UserID sharedtypes.UserID `json:"userId"`
	XP     int64              `json:"xp"`
	Level  int64              `json:"level"`
}

// leaderboard loads the top users with their levels under the guild's curve.
func (h *Handlers) leaderboard(ctx context.Context, guildID sharedtypes.GuildID, limit int) (results.OperationResult[[]LeaderboardEntry, error], error) {
	settings, err := h.settings.GetGuildSettings(ctx, guildID)
	if err != nil {
		return results.OperationResult[[]LeaderboardEntry, error]{}, err
	}
	if settings.IsFailure() {
		return results.FailureResult[[]LeaderboardEntry, error](*settings.Failure), nil
	}

	top, err := h.score.TopUsers(ctx, guildID, limit)
	if err != nil {
		return results.OperationResult[[]LeaderboardEntry, error]{}, err
	}
	if top.IsFailure() {
		return results.FailureResult[[]LeaderboardEntry, error](*top.Failure), nil
	}

	entries := make([]LeaderboardEntry, 0, len(*top.Success))
	for i, row := range *top.Success {
		entries = append(entries, LeaderboardEntry{
			Rank:   i + 1,
			UserID: row.UserID,
			XP:     row.XP,
			Level:  scoredomain.LevelFromXP(row.XP, settings.Success.LevelCurveFactor),
		})
	}
	return results.SuccessResult[[]LeaderboardEntry, error](entries), nil
}

func (h *Handlers) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := scoreservice.DefaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be an integer", Field: "limit"})
			return
		}
		limit = n
	}

	result, err := h.leaderboard(r.Context(), guildParam(r), limit)
	if err != nil {
		h.internalError(w, r, "leaderboard", err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guildId": guildParam(r),
		"entries": *result.Success,
	})
}

func (h *Handlers) GetUserXP(w http.ResponseWriter, r *http.Request) {
	userID := sharedtypes.UserID(chi.URLParam(r, "userID"))
	result, err := h.score.GetStanding(r.Context(), guildParam(r), userID)
	if err != nil {
		h.internalError(w, r, "get_standing", err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	writeJSON(w, http.StatusOK, result.Success)
}

type setXPRequest struct {
	XP *int64 `json:"xp"`
}

func (h *Handlers) PutUserXP(w http.ResponseWriter, r *http.Request) {
	var req setXPRequest
	if err := decodeBody(r, &req); err != nil || req.XP == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "body must be {\"xp\": <integer>}", Field: "xp"})
		return
	}

	guildID := guildParam(r)
	userID := sharedtypes.UserID(chi.URLParam(r, "userID"))
	result, err := h.score.SetXP(r.Context(), guildID, userID, *req.XP)
	if err != nil {
		h.internalError(w, r, "set_xp", err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	h.logger.InfoContext(r.Context(), "XP set by admin",
		attr.GuildID(guildID),
		attr.UserID(userID),
		attr.Int64("old_xp", result.Success.OldXP),
		attr.Int64("new_xp", result.Success.NewXP),
	)
	writeJSON(w, http.StatusOK, map[string]int64{
		"oldXp": result.Success.OldXP,
		"newXp": result.Success.NewXP,
	})
}

func (h *Handlers) RunDecay(w http.ResponseWriter, r *http.Request) {
	result, ran, err := h.decay.DecayGuild(r.Context(), guildParam(r))
	if err != nil {
		h.internalError(w, r, "decay", err)
		return
	}
	if !ran {
		writeError(w, http.StatusConflict, "a decay pass is already running")
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	changes := *result.Success
	if changes == nil {
		changes = []scoreservice.DecayChange{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

func (h *Handlers) ListLevelRoles(w http.ResponseWriter, r *http.Request) {
	result, err := h.roles.ListLevelRoles(r.Context(), guildParam(r))
	if err != nil {
		h.internalError(w, r, "list_level_roles", err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	mappings := *result.Success
	if mappings == nil {
		mappings = []levelrolesdomain.Mapping{}
	}
	writeJSON(w, http.StatusOK, mappings)
}

type levelRoleRequest struct {
	RequiredLevel *int64 `json:"requiredLevel"`
	DropGraceDays int    `json:"dropGraceDays"`
}

func (h *Handlers) PutLevelRole(w http.ResponseWriter, r *http.Request) {
	var req levelRoleRequest
	if err := decodeBody(r, &req); err != nil || req.RequiredLevel == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "body must include requiredLevel", Field: "requiredLevel"})
		return
	}

	result, err := h.roles.UpsertLevelRole(r.Context(), levelrolesdomain.Mapping{
		GuildID:       guildParam(r),
		RoleID:        sharedtypes.RoleID(chi.URLParam(r, "roleID")),
		RequiredLevel: *req.RequiredLevel,
		DropGraceDays: req.DropGraceDays,
	})
	if err != nil {
		h.internalError(w, r, "upsert_level_role", err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	writeJSON(w, http.StatusOK, result.Success)
}

func (h *Handlers) DeleteLevelRole(w http.ResponseWriter, r *http.Request) {
	result, err := h.roles.DeleteLevelRole(r.Context(), guildParam(r), sharedtypes.RoleID(chi.URLParam(r, "roleID")))
	if err != nil {
		h.internalError(w, r, "delete_level_role", err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"timersCleared": *result.Success})
}

func (h *Handlers) ListCommandChannels(w http.ResponseWriter, r *http.Request) {
	result, err := h.settings.ListAllowedChannels(r.Context(), guildParam(r))
	h.writeChannels(w, r, "list_command_channels", result, err)
}

// GetCommandChannel reports whether commands may run in the channel.
func (h *Handlers) GetCommandChannel(w http.ResponseWriter, r *http.Request) {
	channelID := sharedtypes.ChannelID(chi.URLParam(r, "channelID"))
	allowed, err := h.settings.IsCommandAllowed(r.Context(), guildParam(r), channelID)
	if err != nil {
		h.internalError(w, r, "is_command_allowed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channelId": channelID, "allowed": allowed})
}

func (h *Handlers) PutCommandChannel(w http.ResponseWriter, r *http.Request) {
	result, err := h.settings.AddAllowedChannel(r.Context(), guildParam(r), sharedtypes.ChannelID(chi.URLParam(r, "channelID")))
	h.writeChannels(w, r, "add_command_channel", result, err)
}

func (h *Handlers) DeleteCommandChannel(w http.ResponseWriter, r *http.Request) {
	result, err := h.settings.RemoveAllowedChannel(r.Context(), guildParam(r), sharedtypes.ChannelID(chi.URLParam(r, "channelID")))
	h.writeChannels(w, r, "remove_command_channel", result, err)
}

func (h *Handlers) writeChannels(w http.ResponseWriter, r *http.Request, op string, result settingsservice.ChannelsResult, err error) {
	if err != nil {
		h.internalError(w, r, op, err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	channels := *result.Success
	if channels == nil {
		channels = []sharedtypes.ChannelID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}
