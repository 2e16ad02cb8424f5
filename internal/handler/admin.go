package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-arcade-bot/internal/config"
	"chat-arcade-bot/internal/platform"
	"chat-arcade-bot/internal/router"
	"chat-arcade-bot/internal/service"
)

// AdminHandler handles moderation commands.
type AdminHandler struct {
	cfg            *config.Config
	moderator      platform.Moderator
	warningService *service.WarningService
	sink           platform.Sink
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg *config.Config, moderator platform.Moderator, warningService *service.WarningService, sink platform.Sink) *AdminHandler {
	return &AdminHandler{
		cfg:            cfg,
		moderator:      moderator,
		warningService: warningService,
		sink:           sink,
	}
}

// sanctionTarget returns the replied-to member when they may be sanctioned.
func (h *AdminHandler) sanctionTarget(c tele.Context) (*tele.User, error) {
	target := replyTarget(c)
	if target == nil {
		return nil, c.Reply("❌ Reply to the member's message.")
	}
	if h.cfg.IsAdmin(target.ID) {
		return nil, c.Reply("❌ Admins cannot be sanctioned.")
	}
	return target, nil
}

// HandleBan handles /ban as a reply.
func (h *AdminHandler) HandleBan(c tele.Context) error {
	target, err := h.sanctionTarget(c)
	if target == nil {
		return err
	}
	if err := h.moderator.Ban(context.Background(), c.Chat().ID, target.ID); err != nil {
		log.Error().Err(err).Int64("target_id", target.ID).Msg("Failed to ban member")
		return c.Reply("❌ Ban failed. Does the bot have admin rights?")
	}
	log.Info().
		Int64("admin_id", c.Sender().ID).
		Int64("target_id", target.ID).
		Str("operation", "ban").
		Msg("Admin operation executed")
	return c.Reply(fmt.Sprintf("🔨 %s was banned.", DisplayName(target)))
}

// HandleKick handles /kick as a reply.
func (h *AdminHandler) HandleKick(c tele.Context) error {
	target, err := h.sanctionTarget(c)
	if target == nil {
		return err
	}
	if err := h.moderator.Kick(context.Background(), c.Chat().ID, target.ID); err != nil {
		log.Error().Err(err).Int64("target_id", target.ID).Msg("Failed to kick member")
		return c.Reply("❌ Kick failed. Does the bot have admin rights?")
	}
	log.Info().
		Int64("admin_id", c.Sender().ID).
		Int64("target_id", target.ID).
		Str("operation", "kick").
		Msg("Admin operation executed")
	return c.Reply(fmt.Sprintf("👢 %s was kicked.", DisplayName(target)))
}

// HandleSay handles /say <text>: the bot repeats the text and drops the command.
func (h *AdminHandler) HandleSay(c tele.Context) error {
	text := strings.TrimSpace(c.Message().Payload)
	if text == "" {
		return c.Reply("Usage: /say <text>")
	}
	if err := c.Delete(); err != nil {
		log.Debug().Err(err).Msg("Failed to delete /say command")
	}
	return c.Send(text)
}

// HandleRoleButtons handles /role_buttons <title> | label:role label:role ...
func (h *AdminHandler) HandleRoleButtons(c tele.Context) error {
	title, options, ok := parseRoleButtons(c.Message().Payload)
	if !ok {
		return c.Reply("Usage: /role_buttons <title> | label:role label:role ...")
	}
	_, err := h.sink.Send(context.Background(), c.Chat().ID, router.RolePanel(title, options))
	return err
}

func parseRoleButtons(payload string) (string, []router.RoleOption, bool) {
	title, buttons, found := strings.Cut(payload, "|")
	title = strings.TrimSpace(title)
	if !found || title == "" {
		return "", nil, false
	}
	var options []router.RoleOption
	for _, field := range strings.Fields(buttons) {
		label, role, ok := strings.Cut(field, ":")
		if !ok || label == "" || role == "" {
			return "", nil, false
		}
		options = append(options, router.RoleOption{Label: label, Role: role})
	}
	return title, options, len(options) > 0
}

// HandleWarn handles /warn [reason] as a reply.
func (h *AdminHandler) HandleWarn(c tele.Context) error {
	target, err := h.sanctionTarget(c)
	if target == nil {
		return err
	}
	reason := strings.TrimSpace(c.Message().Payload)

	res, err := h.warningService.Warn(context.Background(), c.Chat().ID, target.ID, 1)
	if err != nil {
		log.Error().Err(err).Int64("target_id", target.ID).Msg("Warning escalation failed")
		if res.Count == 0 {
			return c.Reply("❌ Failed to add the warning, please try again later.")
		}
	}

	log.Info().
		Int64("admin_id", c.Sender().ID).
		Int64("target_id", target.ID).
		Int("warnings", res.Count).
		Str("reason", reason).
		Msg("Member warned")

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚠️ %s was warned (%d/%d).", DisplayName(target), res.Count, h.cfg.Warnings.KickThreshold))
	if reason != "" {
		sb.WriteString("\nReason: " + reason)
	}
	if res.RoleGranted {
		sb.WriteString(fmt.Sprintf("\n🔇 Restricted and marked %q.", h.cfg.Warnings.Role))
	}
	if res.Kicked {
		sb.WriteString("\n👢 Too many warnings: kicked from the chat.")
	}
	if err != nil {
		sb.WriteString("\n❗ The moderation action failed. Check the bot's admin rights.")
	}
	return c.Reply(sb.String())
}

// HandleWarnRemove handles /warn_remove [n] as a reply.
func (h *AdminHandler) HandleWarnRemove(c tele.Context) error {
	target := replyTarget(c)
	if target == nil {
		return c.Reply("❌ Reply to the member's message.")
	}
	n, ok := intArg(c, 0, 1)
	if !ok {
		return c.Reply("Usage: /warn_remove [n]")
	}

	count, err := h.warningService.Remove(context.Background(), target.ID, n)
	if errors.Is(err, service.ErrInvalidAmount) {
		return c.Reply("❌ The number of warnings must be positive.")
	}
	if err != nil {
		log.Error().Err(err).Int64("target_id", target.ID).Msg("Failed to remove warnings")
		return c.Reply("❌ Failed to remove warnings, please try again later.")
	}
	return c.Reply(fmt.Sprintf("✅ %s now has %d warning(s).", DisplayName(target), count))
}

// HandleWarnings handles /warnings for the replied-to user or the sender.
func (h *AdminHandler) HandleWarnings(c tele.Context) error {
	u := subjectOrSelf(c)
	if u == nil {
		return nil
	}
	count, err := h.warningService.Count(context.Background(), u.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to get warnings")
		return c.Reply("❌ Failed to load warnings, please try again later.")
	}
	return c.Reply(fmt.Sprintf("⚠️ %s has %d warning(s).", DisplayName(u), count))
}
