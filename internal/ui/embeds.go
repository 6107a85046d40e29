package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/frenchfry/internal/player"
	"github.com/sonroyaalmerol/frenchfry/internal/utils"
)

const QueuePageSize = 10

var ErrPageOutOfRange = errors.New("the queue isn't that big")

func trackLink(t player.TrackRef) string {
	title := utils.EscapeMd(t.Title)
	if t.URI == "" {
		return "**" + title + "**"
	}
	return fmt.Sprintf("[**%s**](%s)", title, t.URI)
}

func trackLength(t player.TrackRef) string {
	if t.IsStream {
		return "live"
	}
	return utils.PrettyDuration(t.Duration())
}

func BuildPlayingEmbed(snap player.Snapshot) *discordgo.MessageEmbed {
	cur := snap.Current
	if cur == nil {
		return &discordgo.MessageEmbed{
			Title:       "Nothing Playing",
			Description: "Nothing is playing right now",
			Color:       0x992222,
		}
	}
	button := "▶️"
	if snap.Paused {
		button = "⏸️"
	}
	progress := 0.0
	if cur.DurationMs > 0 {
		progress = float64(snap.Position.Milliseconds()) / float64(cur.DurationMs)
	}
	elapsed := "live"
	if !cur.IsStream {
		elapsed = fmt.Sprintf("%s/%s", utils.PrettyDuration(snap.Position), utils.PrettyDuration(cur.Duration()))
	}
	loop := ""
	if snap.Repeat {
		loop = "🔁"
	}

	desc := fmt.Sprintf("%s\nRequested by: <@%s>\n\n%s %s `[ %s ]` %s",
		trackLink(*cur),
		cur.RequesterID,
		button, ProgressBar(10, progress), elapsed, loop,
	)

	color := 0x006400
	title := "Now Playing"
	if snap.Paused {
		color = 0x8B0000
		title = "Paused"
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Volume: %d%%", snap.Volume),
		},
	}
	if cur.Author != "" {
		embed.Footer.Text = fmt.Sprintf("Source: %s · Volume: %d%%", cur.Author, snap.Volume)
	}
	if cur.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: cur.ArtworkURL}
	}
	return embed
}

// BuildQueueEmbed renders one page of upcoming tracks, numbered from 1.
func BuildQueueEmbed(snap player.Snapshot, page int) (*discordgo.MessageEmbed, error) {
	total := len(snap.Queue)
	if total == 0 {
		return nil, player.ErrEmptyQueue
	}
	pages := (total + QueuePageSize - 1) / QueuePageSize
	if page <= 0 {
		page = 1
	}
	if page > pages {
		return nil, ErrPageOutOfRange
	}

	begin := (page - 1) * QueuePageSize
	end := min(begin+QueuePageSize, total)

	var b strings.Builder
	for i, t := range snap.Queue[begin:end] {
		fmt.Fprintf(&b, "`%d.` %s `[ %s ]`\n", begin+i+1, trackLink(t), trackLength(t))
	}

	var totalLen int64
	for _, t := range snap.Queue {
		if !t.IsStream {
			totalLen += t.DurationMs
		}
	}

	songs := "1 track"
	if total != 1 {
		songs = fmt.Sprintf("%d tracks", total)
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: fmt.Sprintf("**%s**\n\n%s", songs, b.String()),
		Color:       0x006400,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Total length",
				Value:  utils.PrettyDuration(player.TrackRef{DurationMs: totalLen}.Duration()),
				Inline: true,
			},
			{
				Name:   "Repeat",
				Value:  onOff(snap.Repeat),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Viewing page %d/%d", page, pages),
		},
	}
	if snap.Current != nil {
		embed.Fields = append([]*discordgo.MessageEmbedField{{
			Name:  "Now playing",
			Value: trackLink(*snap.Current),
		}}, embed.Fields...)
	}
	return embed, nil
}

// BuildEnqueuedEmbed confirms a play command.
func BuildEnqueuedEmbed(res player.PlayResult) *discordgo.MessageEmbed {
	if res.PlaylistName != "" {
		return &discordgo.MessageEmbed{
			Title:       "Playlist Enqueued!",
			Description: fmt.Sprintf("%s - %d tracks", utils.EscapeMd(res.PlaylistName), len(res.Tracks)),
			Color:       0x006400,
		}
	}
	t := res.Tracks[0]
	embed := &discordgo.MessageEmbed{
		Title:       "Track Enqueued",
		Description: trackLink(t),
		Color:       0x006400,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Length", Value: trackLength(t), Inline: true},
			{Name: "Position", Value: fmt.Sprint(res.Position), Inline: true},
		},
	}
	if res.Started {
		embed.Fields[1].Value = "Now playing"
	}
	if t.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.ArtworkURL}
	}
	return embed
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
