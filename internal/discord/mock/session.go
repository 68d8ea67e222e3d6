// Package mock provides a recording [discord.Responder] for handler tests.
package mock

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/pictalk/internal/discord"
)

var _ discord.Responder = (*Responder)(nil)

// Responder records every answer a handler sends. The zero value is ready
// to use.
type Responder struct {
	mu sync.Mutex

	// Responses holds the initial interaction responses in order.
	Responses []*discordgo.InteractionResponse

	// FollowUps holds the follow-up messages sent after a deferred reply.
	FollowUps []*discordgo.WebhookParams

	// Err, when set, fails every call after recording it.
	Err error
}

func (r *Responder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses = append(r.Responses, resp)
	return r.Err
}

func (r *Responder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, params *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FollowUps = append(r.FollowUps, params)
	if r.Err != nil {
		return nil, r.Err
	}
	return &discordgo.Message{ID: "followup-" + strconv.Itoa(len(r.FollowUps))}, nil
}

// LastResponse returns the newest initial response, or nil.
func (r *Responder) LastResponse() *discordgo.InteractionResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return last(r.Responses)
}

// LastFollowUp returns the newest follow-up, or nil.
func (r *Responder) LastFollowUp() *discordgo.WebhookParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return last(r.FollowUps)
}

// Sent reports how many messages of either kind were sent.
func (r *Responder) Sent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Responses) + len(r.FollowUps)
}

func last[T any](s []*T) *T {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}
