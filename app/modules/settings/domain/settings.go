// Package settingsdomain holds per-guild tunables and the typed patch used to change them.
package settingsdomain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// MaxDecayPercent is the largest fraction of XP a single decay pass may remove.
const MaxDecayPercent = 0.95

// GuildSettings is the full configuration record for one guild.
type GuildSettings struct {
	GuildID                 sharedtypes.GuildID `json:"guildId"`
	MsgXP                   int64               `json:"msgXp"`
	ReactionXP              int64               `json:"reactionXp"`
	VoiceXPPerMinute        int64               `json:"voiceXpPerMinute"`
	MsgCooldownSeconds      int                 `json:"msgCooldownSeconds"`
	ReactionCooldownSeconds int                 `json:"reactionCooldownSeconds"`
	DecayEnabled            bool                `json:"decayEnabled"`
	DecayWindowDays         int                 `json:"decayWindowDays"`
	DecayMinMessages        int                 `json:"decayMinMessages"`
	DecayPercent            float64             `json:"decayPercent"`
	LevelCurveFactor        int64               `json:"levelCurveFactor"`
	UpdatedAt               time.Time           `json:"updatedAt"`
}

// Defaults returns the settings a guild starts with.
func Defaults(guildID sharedtypes.GuildID) GuildSettings {
	return GuildSettings{
		GuildID:                 guildID,
		MsgXP:                   5,
		ReactionXP:              2,
		VoiceXPPerMinute:        3,
		MsgCooldownSeconds:      20,
		ReactionCooldownSeconds: 30,
		DecayEnabled:            false,
		DecayWindowDays:         14,
		DecayMinMessages:        20,
		DecayPercent:            0.10,
		LevelCurveFactor:        100,
	}
}

// MsgCooldown returns the message cooldown as a duration.
func (s GuildSettings) MsgCooldown() time.Duration {
	return time.Duration(s.MsgCooldownSeconds) * time.Second
}

// ReactionCooldown returns the reaction cooldown as a duration.
func (s GuildSettings) ReactionCooldown() time.Duration {
	return time.Duration(s.ReactionCooldownSeconds) * time.Second
}

// SettingsPatch enumerates every field an update may change. Nil fields are left alone.
type SettingsPatch struct {
	MsgXP                   *int64   `json:"msgXp,omitempty"`
	ReactionXP              *int64   `json:"reactionXp,omitempty"`
	VoiceXPPerMinute        *int64   `json:"voiceXpPerMinute,omitempty"`
	MsgCooldownSeconds      *int     `json:"msgCooldownSeconds,omitempty"`
	ReactionCooldownSeconds *int     `json:"reactionCooldownSeconds,omitempty"`
	DecayEnabled            *bool    `json:"decayEnabled,omitempty"`
	DecayWindowDays         *int     `json:"decayWindowDays,omitempty"`
	DecayMinMessages        *int     `json:"decayMinMessages,omitempty"`
	DecayPercent            *float64 `json:"decayPercent,omitempty"`
	LevelCurveFactor        *int64   `json:"levelCurveFactor,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p == SettingsPatch{}
}

// Validate checks every set field against its allowed range.
func (p SettingsPatch) Validate() error {
	nonNegative64 := func(field string, v *int64) error {
		if v != nil && *v < 0 {
			return apperrors.NewValidationError(field, "must be >= 0")
		}
		return nil
	}
	nonNegative := func(field string, v *int) error {
		if v != nil && *v < 0 {
			return apperrors.NewValidationError(field, "must be >= 0")
		}
		return nil
	}

	checks := []error{
		nonNegative64("msgXp", p.MsgXP),
		nonNegative64("reactionXp", p.ReactionXP),
		nonNegative64("voiceXpPerMinute", p.VoiceXPPerMinute),
		nonNegative("msgCooldownSeconds", p.MsgCooldownSeconds),
		nonNegative("reactionCooldownSeconds", p.ReactionCooldownSeconds),
		nonNegative("decayMinMessages", p.DecayMinMessages),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if p.DecayWindowDays != nil && *p.DecayWindowDays < 1 {
		return apperrors.NewValidationError("decayWindowDays", "must be >= 1")
	}
	if p.DecayPercent != nil {
		v := *p.DecayPercent
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxDecayPercent {
			return apperrors.NewValidationError("decayPercent", fmt.Sprintf("must be between 0 and %.2f", MaxDecayPercent))
		}
	}
	if p.LevelCurveFactor != nil && *p.LevelCurveFactor < 1 {
		return apperrors.NewValidationError("levelCurveFactor", "must be >= 1")
	}
	return nil
}

// Apply returns s with every set field of p copied over. It does not validate.
func (p SettingsPatch) Apply(s GuildSettings) GuildSettings {
	if p.MsgXP != nil {
		s.MsgXP = *p.MsgXP
	}
	if p.ReactionXP != nil {
		s.ReactionXP = *p.ReactionXP
	}
	if p.VoiceXPPerMinute != nil {
		s.VoiceXPPerMinute = *p.VoiceXPPerMinute
	}
	if p.MsgCooldownSeconds != nil {
		s.MsgCooldownSeconds = *p.MsgCooldownSeconds
	}
	if p.ReactionCooldownSeconds != nil {
		s.ReactionCooldownSeconds = *p.ReactionCooldownSeconds
	}
	if p.DecayEnabled != nil {
		s.DecayEnabled = *p.DecayEnabled
	}
	if p.DecayWindowDays != nil {
		s.DecayWindowDays = *p.DecayWindowDays
	}
	if p.DecayMinMessages != nil {
		s.DecayMinMessages = *p.DecayMinMessages
	}
	if p.DecayPercent != nil {
		s.DecayPercent = *p.DecayPercent
	}
	if p.LevelCurveFactor != nil {
		s.LevelCurveFactor = *p.LevelCurveFactor
	}
	return s
}

var patchKeys = map[string]struct{}{
	"msgXp":                   {},
	"reactionXp":              {},
	"voiceXpPerMinute":        {},
	"msgCooldownSeconds":      {},
	"reactionCooldownSeconds": {},
	"decayEnabled":            {},
	"decayWindowDays":         {},
	"decayMinMessages":        {},
	"decayPercent":            {},
	"levelCurveFactor":        {},
}

// ParseSettingsPatch converts a loosely typed key/value map into a SettingsPatch.
// Unknown keys and values of the wrong type are rejected.
func ParseSettingsPatch(raw map[string]any) (SettingsPatch, error) {
	var unknown []string
	for k := range raw {
		if _, ok := patchKeys[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return SettingsPatch{}, apperrors.NewValidationError(unknown[0], "unknown setting")
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return SettingsPatch{}, apperrors.NewValidationError("", err.Error())
	}
	return DecodeSettingsPatch(b)
}

// DecodeSettingsPatch decodes a JSON document into a SettingsPatch, rejecting unknown fields.
func DecodeSettingsPatch(b []byte) (SettingsPatch, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var p SettingsPatch
	if err := dec.Decode(&p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return SettingsPatch{}, apperrors.NewValidationError(typeErr.Field, "wrong type: expected "+typeErr.Type.String())
		}
		return SettingsPatch{}, apperrors.NewValidationError("", err.Error())
	}
	return p, nil
}
