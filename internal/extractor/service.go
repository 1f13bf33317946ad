package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"creator-scout-go/internal/metrics"
)

var ErrNoJSON = errors.New("no JSON object in model reply")

const categorizePrompt = `You are an expert social media analyst. Given TikTok post metadata, classify each post into a high-level category, e.g. "Dance", "Comedy", "Education", "Music", "Fashion", "Fitness", "Food", "Travel", "Animals", "Beauty", "Sports", "Gaming", "Technology", or any other fitting category.
Also report whether the post contains a call to action and whether it looks usable for a brand campaign.
Only use the provided metadata for your decision.
Always answer with this JSON shape:
{"result":[{"id":"1234567890","postCategory":"Dance","ctaDetected":false,"usableForCampaign":true}]}`

const contactsPrompt = `You are an expert social media analyst.
Given a TikTok profile bio, classify the creator into a high-level category, e.g. "Dance", "Comedy", "Education", "Music", "Fashion", "Fitness", "Food", "Travel", "Animals", "Beauty", "Sports", "Gaming", "Technology", or any other fitting category.
Extract any contact details present in the text.
Always answer with this JSON shape, using empty strings for anything missing:
{"result":{"creatorType":"Dance","contactDetails":{"email":"<comma separated or empty>","mobile":"<comma separated or empty>","other":"<comma separated type: detail pairs or empty>"}}}`

const languagePrompt = `What language is this text written in?
Answer with JSON in the format {"language":"<language name, comma separated if several>"}.`

// Category is one classified post.
type Category struct {
	ID           string
	PostCategory string
	CTADetected  bool
	Usable       bool
}

// Contacts is the contact block extracted from a profile bio. The zero value
// is the well-shaped empty fallback.
type Contacts struct {
	CreatorType string
	Email       string
	Mobile      string
	Other       string
}

// Service holds the prompts for every language-service call the pipeline makes.
type Service struct {
	chat Chatter
	log  *logrus.Entry
}

func NewService(chat Chatter, log *logrus.Entry) *Service {
	return &Service{chat: chat, log: log.WithField("component", "extractor")}
}

func (s *Service) call(ctx context.Context, kind, system, user string) (string, error) {
	start := time.Now()
	reply, err := s.chat.Chat(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	metrics.ObserveLLMCall(s.chat.Provider(), kind, time.Since(start), err == nil)
	if err != nil {
		return "", fmt.Errorf("%s call: %w", kind, err)
	}
	return reply, nil
}

// Categorize classifies one batch. payload is the JSON projection of the posts.
func (s *Service) Categorize(ctx context.Context, payload string) ([]Category, error) {
	reply, err := s.call(ctx, "categorize", categorizePrompt, "Classify the following TikTok posts:\n"+payload)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Result []struct {
			ID           flexString `json:"id"`
			PostCategory flexString `json:"postCategory"`
			CTADetected  flexBool   `json:"ctaDetected"`
			Usable       flexBool   `json:"usableForCampaign"`
		} `json:"result"`
	}
	if err := decodeReply(reply, &parsed); err != nil {
		return nil, fmt.Errorf("parse categorize reply: %w", err)
	}
	out := make([]Category, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		if r.ID == "" {
			continue
		}
		out = append(out, Category{
			ID:           string(r.ID),
			PostCategory: string(r.PostCategory),
			CTADetected:  bool(r.CTADetected),
			Usable:       bool(r.Usable),
		})
	}
	return out, nil
}

// ExtractContacts classifies a creator and pulls contact details from bio text.
func (s *Service) ExtractContacts(ctx context.Context, bio string) (Contacts, error) {
	if strings.TrimSpace(bio) == "" {
		return Contacts{}, nil
	}
	reply, err := s.call(ctx, "contacts", contactsPrompt, bio)
	if err != nil {
		return Contacts{}, err
	}
	var parsed struct {
		Result struct {
			CreatorType    flexString            `json:"creatorType"`
			ContactDetails map[string]flexString `json:"contactDetails"`
		} `json:"result"`
	}
	if err := decodeReply(reply, &parsed); err != nil {
		return Contacts{}, fmt.Errorf("parse contacts reply: %w", err)
	}
	c := Contacts{CreatorType: string(parsed.Result.CreatorType)}
	for k, v := range parsed.Result.ContactDetails {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "email", "emails":
			c.Email = string(v)
		case "mobile", "phone":
			c.Mobile = string(v)
		case "other":
			c.Other = string(v)
		}
	}
	return c, nil
}

// DetectLanguage names the language of a transcript.
func (s *Service) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	reply, err := s.call(ctx, "language", languagePrompt, fmt.Sprintf("Here is the text:\n%q", text))
	if err != nil {
		return "", err
	}
	var parsed struct {
		Language flexString `json:"language"`
	}
	if err := decodeReply(reply, &parsed); err != nil {
		return "", fmt.Errorf("parse language reply: %w", err)
	}
	return string(parsed.Language), nil
}
