package handlers

import (
	"context"
	"fmt"
	"time"

	"guild-guardian/bot"
	"guild-guardian/model"
	"guild-guardian/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const cpuSampleInterval = time.Second

func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	inv := authorize(ctx, s, i, b, "sysinfo")
	if inv == nil {
		return
	}

	// CPU sampling outlasts the interaction deadline.
	if err := utils.DeferResponse(s, i, false); err != nil {
		inv.log.Warn("failed to defer response", zap.Error(err))
		return
	}

	info := utils.CollectSystemInfo(cpuSampleInterval)
	embed := systemInfoEmbed(info, utils.FileSizeMB(b.GetConfig().DatabasePath), len(s.State.Guilds), s.HeartbeatLatency(), b.Clock.Now())
	if err := utils.EditResponseEmbed(s, i.Interaction, embed); err != nil {
		inv.log.Warn("failed to respond", zap.Error(err))
	}
}

func systemInfoEmbed(info utils.SystemInfo, dbSizeMB int64, guilds int, latency time.Duration, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "System Information",
		Color: model.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: info.OS, Inline: true},
			{Name: "🔧 Kernel", Value: orDefault(info.KernelVersion, "unknown"), Inline: true},
			{Name: "🐹 Go", Value: info.GoVersion, Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", info.CPUCount), Inline: true},
			{Name: "🔥 CPU Usage", Value: fmt.Sprintf("%.1f%%", info.CPUPercent), Inline: true},
			{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", info.MemPercent, info.MemUsedMB, info.MemTotalMB), Inline: true},
			{Name: "🗃️ Database", Value: fmt.Sprintf("%d MB", dbSizeMB), Inline: true},
			{Name: "⏱️ Gateway Latency", Value: latency.String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", info.Goroutines), Inline: true},
			{Name: "🌍 Cached Guilds", Value: fmt.Sprintf("%d", guilds), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "System monitor · " + now.Format("15:04"),
		},
	}
}
