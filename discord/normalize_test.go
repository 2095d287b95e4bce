package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"chatbot-gateway/bot/dispatch/domain"
)

const botID = "100"

func TestNormalize_MentionInTextChannel(t *testing.T) {
	m := &discordgo.Message{
		ID:        "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   "<@100> hello",
		Author:    &discordgo.User{ID: "u1", Username: "ana"},
		Mentions:  []*discordgo.User{{ID: "200"}, {ID: botID}},
		Attachments: []*discordgo.MessageAttachment{
			{Filename: "a.png", URL: "https://cdn/a.png", ContentType: "image/png"},
		},
	}
	ch := &discordgo.Channel{ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText}

	in := Normalize(m, ch, botID)

	if in.ChannelKind != domain.ChannelText || in.ChannelName != "general" {
		t.Fatalf("unexpected channel %+v", in)
	}
	if !in.MentionsBot || in.MentionEveryone {
		t.Fatalf("expected direct mention, got %+v", in)
	}
	if in.Author.ID != "u1" || in.Author.Name != "ana" || in.Author.Bot {
		t.Fatalf("unexpected author %+v", in.Author)
	}
	if len(in.Attachments) != 1 || in.Attachments[0].URL != "https://cdn/a.png" {
		t.Fatalf("unexpected attachments %+v", in.Attachments)
	}
	if in.ThreadOwnerID != "" {
		t.Fatalf("text channel has no thread owner")
	}
	if in.BotID != botID {
		t.Fatalf("bot id not set")
	}
}

func TestNormalize_ThreadOwner(t *testing.T) {
	m := &discordgo.Message{ID: "m2", ChannelID: "t1", Author: &discordgo.User{ID: "u1"}}

	for _, typ := range []discordgo.ChannelType{
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
	} {
		ch := &discordgo.Channel{ID: "t1", Type: typ, OwnerID: botID}
		in := Normalize(m, ch, botID)
		if in.ChannelKind != domain.ChannelThread || in.ThreadOwnerID != botID {
			t.Fatalf("type %d: expected bot-owned thread, got %+v", typ, in)
		}
		if in.MentionsBot {
			t.Fatalf("no mention expected")
		}
	}
}

func TestNormalize_ChannelKinds(t *testing.T) {
	m := &discordgo.Message{ID: "m3", Author: &discordgo.User{ID: "u1", Bot: true}, MentionEveryone: true}

	cases := map[string]struct {
		ch   *discordgo.Channel
		want domain.ChannelKind
	}{
		"dm":      {&discordgo.Channel{Type: discordgo.ChannelTypeDM}, domain.ChannelDirect},
		"forum":   {&discordgo.Channel{Type: discordgo.ChannelTypeGuildForum}, domain.ChannelDirect},
		"unknown": {nil, domain.ChannelDirect},
	}
	for name, c := range cases {
		in := Normalize(m, c.ch, botID)
		if in.ChannelKind != c.want {
			t.Fatalf("%s: expected kind %d, got %d", name, c.want, in.ChannelKind)
		}
		if !in.Author.Bot || !in.MentionEveryone {
			t.Fatalf("%s: flags lost: %+v", name, in)
		}
	}
}
