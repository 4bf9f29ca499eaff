// Package interpreter orchestrates the message pipeline: tokenize,
// classify, extract, enhance, grade complexity, route, compose. One call
// to Interpret handles one user message end to end and always returns a
// well-formed envelope, even on panic.
package interpreter

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"bugtracker-assistant/internal/collaborator"
	"bugtracker-assistant/internal/common/config"
	apperrors "bugtracker-assistant/internal/common/errors"
	"bugtracker-assistant/internal/common/logger"
	"bugtracker-assistant/internal/common/metrics"
	"bugtracker-assistant/internal/common/observability"
	"bugtracker-assistant/internal/contextstore"
	"bugtracker-assistant/internal/interpreter/classify"
	"bugtracker-assistant/internal/interpreter/complexity"
	"bugtracker-assistant/internal/interpreter/enhance"
	"bugtracker-assistant/internal/interpreter/extract"
	"bugtracker-assistant/internal/interpreter/respond"
	"bugtracker-assistant/internal/interpreter/route"
	"bugtracker-assistant/internal/interpreter/tokenize"
	"bugtracker-assistant/internal/models"
	"bugtracker-assistant/pkg/catalog"
)

const lockStripes = 64

// Request is one inbound user message.
type Request struct {
	UserID  string               `json:"userId"`
	Message string               `json:"message"`
	Profile *models.UserProfile  `json:"profile,omitempty"`
	// PriorContext, when set, seeds this turn's conversation state instead
	// of the stored context. Used by callers that manage their own state.
	PriorContext *models.ConversationContext `json:"context,omitempty"`
}

// Interpreter wires the pipeline stages together. Turns for the same user
// are serialized through a striped lock so context reads and writes never
// interleave.
type Interpreter struct {
	classifier *classify.Classifier
	extractor  *extract.Extractor
	enhancer   *enhance.Enhancer
	router     *route.Router
	suggester  *respond.Suggester
	composer   *respond.Composer
	store      contextstore.Store
	obs        *observability.Observability
	log        logger.Logger
	locks      [lockStripes]sync.Mutex
}

// New assembles the full pipeline from its dependencies.
func New(cat *catalog.Catalog, ops *collaborator.Set, store contextstore.Store, cfg config.InterpreterConfig, callTimeout time.Duration, obs *observability.Observability, log logger.Logger) *Interpreter {
	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = classify.DefaultThreshold
	}
	maxSuggestions := cfg.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = respond.MaxSuggestions
	}
	return &Interpreter{
		classifier: classify.New(cat, threshold),
		extractor:  extract.New(log),
		enhancer:   enhance.New(ops.Users, log),
		router:     route.New(ops, store, cat, callTimeout, log),
		suggester:  respond.NewSuggester(cat, maxSuggestions),
		composer:   respond.NewComposer(cat),
		store:      store,
		obs:        obs,
		log:        log.WithFields(map[string]interface{}{"component": "interpreter"}),
	}
}

// Enhancer exposes the enhancer for clock injection in tests.
func (i *Interpreter) Enhancer() *enhance.Enhancer { return i.enhancer }

// Interpret processes one message and returns the response envelope. It
// never returns an error and never panics outward.
func (i *Interpreter) Interpret(ctx context.Context, req Request) (env *models.ResponseEnvelope) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			perr := apperrors.NewPanicError(r)
			metrics.InterpretFailures.WithLabelValues(string(perr.Code)).Inc()
			i.log.Error("pipeline panic", map[string]interface{}{
				"userId": req.UserID,
				"panic":  perr.Details,
			})
			env = i.errorEnvelope(req)
		}
	}()

	if strings.TrimSpace(req.UserID) == "" {
		verr := apperrors.NewInputValidationError("userId is required")
		metrics.InterpretFailures.WithLabelValues(string(verr.Code)).Inc()
		return i.composer.Compose(respond.Input{
			Intent:          models.IntentError,
			Sentiment:       models.SentimentNeutral,
			MessageOverride: "I can't tell who is asking. A user id is required.",
			Result:          &models.ActionResult{Success: false, Message: "missing user id", Error: verr.Error()},
		})
	}
	// blank messages get guidance and leave stored context untouched
	if strings.TrimSpace(req.Message) == "" {
		return i.composer.Compose(respond.Input{
			Intent:          models.IntentGeneralQuery,
			Sentiment:       models.SentimentNeutral,
			Profile:         req.Profile,
			MessageOverride: "I didn't catch that. Tell me what you'd like to do with your bugs or teams.",
			Result:          &models.ActionResult{Success: true},
			Suggestions:     []string{"Show all bugs", "Show my teams", "Help"},
		})
	}

	lock := i.lockFor(req.UserID)
	lock.Lock()
	metrics.ActiveUserLocks.Inc()
	defer func() {
		metrics.ActiveUserLocks.Dec()
		lock.Unlock()
	}()

	conv := i.loadContext(ctx, req)

	pq := i.parse(ctx, req, conv)
	result := i.route(ctx, req, conv, pq)
	env = i.respond(ctx, req, pq, result)

	if !contextCleared(result) {
		i.saveContext(ctx, req, pq, result, env)
	}

	metrics.MessagesInterpreted.WithLabelValues(pq.Intent, string(pq.QueryType)).Inc()
	if i.obs != nil {
		i.obs.RecordMessage(ctx, pq.Intent, time.Since(start))
	}
	return env
}

// History returns the user's stored conversation turns, oldest first.
func (i *Interpreter) History(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	return i.store.History(ctx, userID)
}

// parse runs the language stages and returns the finished parse, including
// sub-queries for composite messages.
func (i *Interpreter) parse(ctx context.Context, req Request, conv *models.ConversationContext) *models.ParsedQuery {
	pq := i.parseSegment(ctx, req.UserID, req.Message, conv)

	end := i.span(ctx, "complexity")
	stageStart := time.Now()
	complexity.Classify(pq)
	if pq.IsComposite {
		segments := complexity.Decompose(req.Message)
		if len(segments) <= 1 {
			// a conjunction-shaped message that doesn't actually split
			// is handled as one request
			pq.IsComposite = false
			if pq.QueryType == models.QueryTypeComposite {
				pq.QueryType = models.QueryTypeSimple
			}
		} else {
			for _, seg := range segments {
				sub := i.parseSegment(ctx, req.UserID, seg, conv)
				complexity.Classify(sub)
				sub.IsComposite = false
				pq.SubQueries = append(pq.SubQueries, sub)
			}
		}
	}
	metrics.StageDuration.WithLabelValues("complexity").Observe(time.Since(stageStart).Seconds())
	end()
	return pq
}

// parseSegment runs tokenize, classify, extract and enhance over one
// message or sub-message.
func (i *Interpreter) parseSegment(ctx context.Context, userID, message string, conv *models.ConversationContext) *models.ParsedQuery {
	pq := models.NewParsedQuery(message)

	i.timed(ctx, "tokenize", func(context.Context) {
		pq.Tokens = tokenize.Tokens(message)
	})
	i.timed(ctx, "classify", func(context.Context) {
		res := i.classifier.Classify(pq.Tokens)
		pq.Intent = res.Intent
		pq.Confidence = res.Confidence
		pq.Sentiment = res.Sentiment
	})
	i.timed(ctx, "extract", func(context.Context) {
		i.extractor.Extract(pq.Intent, pq)
	})
	i.timed(ctx, "enhance", func(c context.Context) {
		i.enhancer.Enhance(c, userID, conv, pq)
	})
	return pq
}

func (i *Interpreter) route(ctx context.Context, req Request, conv *models.ConversationContext, pq *models.ParsedQuery) *models.ActionResult {
	var result *models.ActionResult
	i.timed(ctx, "route", func(c context.Context) {
		result = i.router.Dispatch(c, &route.Request{
			UserID:  req.UserID,
			Profile: req.Profile,
			Conv:    conv,
			Query:   pq,
		})
	})
	return result
}

func (i *Interpreter) respond(ctx context.Context, req Request, pq *models.ParsedQuery, result *models.ActionResult) *models.ResponseEnvelope {
	var env *models.ResponseEnvelope
	i.timed(ctx, "respond", func(context.Context) {
		env = i.composer.Compose(respond.Input{
			Message:     req.Message,
			Intent:      pq.Intent,
			Confidence:  pq.Confidence,
			Sentiment:   pq.Sentiment,
			Entities:    pq.Entities,
			Profile:     req.Profile,
			Result:      result,
			Suggestions: i.suggester.Suggest(pq.Intent, result),
		})
	})
	return env
}

// loadContext returns this turn's working context: the caller-supplied one
// when present, the stored one otherwise.
func (i *Interpreter) loadContext(ctx context.Context, req Request) *models.ConversationContext {
	if req.PriorContext != nil {
		return req.PriorContext
	}
	conv, err := i.store.Get(ctx, req.UserID)
	if err != nil {
		serr := apperrors.NewContextStoreError(err)
		metrics.InterpretFailures.WithLabelValues(string(serr.Code)).Inc()
		i.log.WithError(serr).Warn("context load failed, starting fresh", map[string]interface{}{
			"userId": req.UserID,
		})
		return models.NewConversationContext(req.UserID)
	}
	return conv
}

// saveContext persists everything this turn learned: referenced bugs, the
// active team, the query record and the last-turn snapshot.
func (i *Interpreter) saveContext(ctx context.Context, req Request, pq *models.ParsedQuery, result *models.ActionResult, env *models.ResponseEnvelope) {
	now := time.Now().UTC()
	err := i.store.Update(ctx, req.UserID, func(conv *models.ConversationContext) {
		for _, ref := range bugRefs(pq, result) {
			conv.PushRecentBug(ref)
		}
		if team := teamRef(pq, result); team != nil {
			conv.CurrentTeam = team
		}
		if len(pq.Entities) > 0 {
			conv.PushRecentEntities(pq.Entities.Clone())
		}
		conv.AppendQueryRecord(models.QueryRecord{
			Intent:    pq.Intent,
			Message:   req.Message,
			Success:   result.Success,
			Timestamp: now,
		})
		conv.LastQuery = env
		conv.LastIntent = pq.Intent
		conv.LastEntities = pq.Entities.Clone()
		conv.LastMessage = req.Message
		conv.UpdatedAt = now
	})
	if err != nil {
		serr := apperrors.NewContextStoreError(err)
		metrics.InterpretFailures.WithLabelValues(string(serr.Code)).Inc()
		i.log.WithError(serr).Warn("context save failed", map[string]interface{}{
			"userId": req.UserID,
		})
	}

	for _, entry := range []models.HistoryEntry{
		{Timestamp: now, Message: req.Message, Type: "user"},
		{Timestamp: now, Message: env.Message, Type: "assistant"},
	} {
		if err := i.store.AppendHistory(ctx, req.UserID, entry); err != nil {
			i.log.WithError(err).Warn("history append failed", map[string]interface{}{
				"userId": req.UserID,
			})
			break
		}
	}
}

func (i *Interpreter) errorEnvelope(req Request) *models.ResponseEnvelope {
	return i.composer.Compose(respond.Input{
		Message:         req.Message,
		Intent:          models.IntentError,
		Sentiment:       models.SentimentNeutral,
		Profile:         req.Profile,
		MessageOverride: "Something unexpected went wrong. Please try that again.",
		Result: &models.ActionResult{
			Success:  false,
			Message:  "Something unexpected went wrong. Please try that again.",
			CanRetry: true,
		},
		Suggestions: []string{"Help"},
	})
}

func (i *Interpreter) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &i.locks[h.Sum32()%lockStripes]
}

// timed wraps a stage with its histogram sample and trace span.
func (i *Interpreter) timed(ctx context.Context, stage string, fn func(context.Context)) {
	end := i.span(ctx, stage)
	start := time.Now()
	fn(ctx)
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	end()
}

func (i *Interpreter) span(ctx context.Context, name string) func() {
	if i.obs == nil {
		return func() {}
	}
	_, end := i.obs.StartSpan(ctx, "interpret."+name)
	return end
}

func contextCleared(result *models.ActionResult) bool {
	if result == nil || result.Data == nil {
		return false
	}
	cleared, _ := result.Data["contextCleared"].(bool)
	return result.Success && cleared
}

// resultFragment is one success payload of a routed turn: the whole result
// for a simple query, or one composite segment with the intent that
// produced it.
type resultFragment struct {
	intent string
	data   map[string]interface{}
}

// resultFragments flattens a routed result into its successful data
// payloads. Composite results contribute one fragment per successful
// segment so segment data merges into context the same as a simple turn's.
func resultFragments(pq *models.ParsedQuery, result *models.ActionResult) []resultFragment {
	if result == nil || result.Data == nil {
		return nil
	}
	segments, ok := result.Data["segments"].([]map[string]interface{})
	if !ok {
		if !result.Success {
			return nil
		}
		return []resultFragment{{intent: pq.Intent, data: result.Data}}
	}
	frags := []resultFragment{}
	for _, seg := range segments {
		success, _ := seg["success"].(bool)
		data, _ := seg["data"].(map[string]interface{})
		if !success || data == nil {
			continue
		}
		intent, _ := seg["intent"].(string)
		frags = append(frags, resultFragment{intent: intent, data: data})
	}
	return frags
}

// bugRefs collects bug references this turn surfaced, from the parse and
// from successful result data, most relevant first.
func bugRefs(pq *models.ParsedQuery, result *models.ActionResult) []models.BugRef {
	refs := []models.BugRef{}
	for _, frag := range resultFragments(pq, result) {
		if bug, ok := frag.data["bug"].(map[string]interface{}); ok {
			if ref := toBugRef(bug); ref.ID != "" {
				refs = append(refs, ref)
			}
		}
		if bugs, ok := frag.data["bugs"].([]interface{}); ok {
			for idx := len(bugs) - 1; idx >= 0; idx-- {
				if bug, ok := bugs[idx].(map[string]interface{}); ok {
					if ref := toBugRef(bug); ref.ID != "" {
						refs = append(refs, ref)
					}
				}
			}
		}
	}
	if id, ok := pq.Entities.GetString("bugId"); ok {
		refs = append(refs, models.BugRef{ID: id})
	}
	return refs
}

func toBugRef(bug map[string]interface{}) models.BugRef {
	id, _ := bug["id"].(string)
	title, _ := bug["title"].(string)
	return models.BugRef{ID: id, Title: title}
}

// teamRef promotes a created or switched-to team from result data. In a
// composite turn the last qualifying segment wins.
func teamRef(pq *models.ParsedQuery, result *models.ActionResult) *models.TeamRef {
	var ref *models.TeamRef
	for _, frag := range resultFragments(pq, result) {
		if frag.intent != models.IntentTeamCreate && frag.intent != models.IntentTeamSwitch {
			continue
		}
		team, ok := frag.data["team"].(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := team["id"].(string)
		if id == "" {
			continue
		}
		name, _ := team["name"].(string)
		ref = &models.TeamRef{ID: id, Name: name}
	}
	return ref
}
