package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/voxdesk/voxdesk/internal/providers/llm"
)

const (
	replyEmptyQuery = "Hi! I'm here to help with questions about our company policies, returns, shipping, warranties, or payments. What would you like to know?"
	replyOffTopic   = "I'm a business assistant focused on helping with company policies, returns, shipping, warranties, and payment questions. Is there something about our business services I can help you with?"
	replyNoMatch    = "Hi there! I'm here to help with questions about our company policies, returns, shipping, warranties, and payments. Is there something specific you'd like to know about our services?"
	replyInternal   = "I apologize, I'm having a technical issue right now. Please feel free to ask me about our company policies, returns, or shipping, and I'll do my best to help!"

	// maxReplyLen keeps replies short enough for voice.
	maxReplyLen = 300
)

// PolicyAnswerer grounds replies in the policy knowledge base: classify the
// query as in-scope, retrieve the closest passages, and have the LLM answer
// from them. Out-of-scope and no-match queries get a canned redirect instead
// of a hallucinated answer.
type PolicyAnswerer struct {
	retriever Retriever
	llm       llm.Provider
	// MaxDistance is the relevance cutoff: matches farther than this are
	// treated as no-match.
	MaxDistance float64
	TopK        int

	log *logrus.Logger
}

func NewPolicyAnswerer(retriever Retriever, model llm.Provider, maxDistance float64, log *logrus.Logger) *PolicyAnswerer {
	if maxDistance <= 0 {
		maxDistance = 2.0
	}
	return &PolicyAnswerer{
		retriever:   retriever,
		llm:         model,
		MaxDistance: maxDistance,
		TopK:        3,
		log:         log,
	}
}

func (a *PolicyAnswerer) CannedReplies() []string {
	return []string{replyEmptyQuery, replyOffTopic, replyNoMatch, replyInternal}
}

func (a *PolicyAnswerer) Answer(ctx context.Context, query string) (string, []string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return replyEmptyQuery, nil, nil
	}

	inScope, err := a.classify(ctx, query)
	if err != nil {
		// Classification is advisory: let the query through on failure.
		a.log.WithError(err).Warn("scope classification failed, allowing query")
		inScope = true
	}
	if !inScope {
		a.log.WithField("query", query).Info("off-topic query redirected")
		return replyOffTopic, nil, nil
	}

	passages, err := a.retriever.Search(ctx, query, a.TopK)
	if err != nil {
		a.log.WithError(err).Error("knowledge search failed")
		return replyInternal, nil, nil
	}
	if len(passages) == 0 || passages[0].Distance > a.MaxDistance {
		return replyNoMatch, nil, nil
	}

	keep := passages
	if len(keep) > 2 {
		keep = keep[:2]
	}
	var contexts, sources []string
	for _, p := range keep {
		contexts = append(contexts, p.Content)
		sources = append(sources, p.Title)
	}

	reply, err := llm.Collect(ctx, a.llm, buildPrompt(strings.Join(contexts, "\n\n"), query))
	if err != nil {
		return "", nil, fmt.Errorf("answer generation: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return replyInternal, nil, nil
	}
	if len(reply) > maxReplyLen {
		if i := strings.LastIndex(reply[:maxReplyLen], "."); i > 0 {
			reply = reply[:i+1]
		} else {
			reply = reply[:maxReplyLen]
		}
	}
	return reply, sources, nil
}

// classify asks the LLM whether the query is about the business at all.
func (a *PolicyAnswerer) classify(ctx context.Context, query string) (bool, error) {
	prompt := `Classify this user query as either "BUSINESS" or "GENERAL".

A BUSINESS query is about company policies, returns, refunds, exchanges,
shipping, delivery, warranties, payments, pricing, orders, products,
services, accounts, or billing.

A GENERAL query is about anything else: weather, sports, entertainment,
personal topics, jokes, general conversation.

User Query: "` + query + `"

Classification (respond with only "BUSINESS" or "GENERAL"):`

	out, err := llm.Collect(ctx, a.llm, prompt)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(out), "BUSINESS"), nil
}

func buildPrompt(context, query string) string {
	return `You are a friendly business policy assistant. Answer the customer's question using the company policies provided below.

Company Policies:
` + context + `

Customer Question: ` + query + `

INSTRUCTIONS:
- Answer the specific question directly and professionally
- Only use greetings if the customer greeted you first
- Keep your response concise and helpful (2-3 sentences)
- Don't add unnecessary pleasantries to every response`
}
