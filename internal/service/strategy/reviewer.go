package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/darknessitachi/pquant/internal/service/engine"
	"github.com/darknessitachi/pquant/internal/service/llm"
	"github.com/darknessitachi/pquant/internal/service/notification"
	"github.com/darknessitachi/pquant/internal/service/quotation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const reviewSystem = "你是一名A股盘后复盘助手, 只根据给出的行情做简短判断, 不构成投资建议。"

var errNoJSON = errors.New("no json object in answer")

// Review 大模型给出的收盘点评
type Review struct {
	Mood    string `json:"mood"` // bullish / bearish / neutral
	Summary string `json:"summary"`
}

// Reviewer 收盘时把最后一次行情交给大模型点评
type Reviewer struct {
	Base
	llm      llm.Service
	notifier notification.Notifier
	log      zerolog.Logger
	timeout  time.Duration

	mu   sync.Mutex
	last quotation.Snapshot
}

type ReviewerOption func(r *Reviewer)

func WithReviewerLogger(l zerolog.Logger) ReviewerOption {
	return func(r *Reviewer) {
		r.log = l.With().Str("strategy", r.Name()).Logger()
	}
}

// WithReviewNotifier 点评同时推送给用户
func WithReviewNotifier(n notification.Notifier) ReviewerOption {
	return func(r *Reviewer) {
		r.notifier = n
	}
}

func NewReviewer(svc llm.Service, opts ...ReviewerOption) *Reviewer {
	r := &Reviewer{
		llm:     svc,
		log:     zerolog.Nop(),
		timeout: time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reviewer) Name() string {
	return "reviewer"
}

func (r *Reviewer) OnQuotation(_ context.Context, p engine.QuotationPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = p.Snapshot
	return nil
}

func (r *Reviewer) OnClock(ctx context.Context, p engine.ClockPayload) error {
	if !p.IsMoment(engine.MomentClose) {
		return nil
	}
	r.mu.Lock()
	snapshot := r.last
	r.last = nil
	r.mu.Unlock()
	if len(snapshot) == 0 {
		r.log.Info().Msg("no quotation seen today, skip review")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	review, err := r.review(ctx, snapshot)
	if err != nil {
		return err
	}
	r.log.Info().Str("mood", review.Mood).Str("summary", review.Summary).Msg("close review")

	if r.notifier != nil {
		if err = r.notifier.Notify(ctx, fmt.Sprintf("收盘点评(%s): %s", review.Mood, review.Summary)); err != nil {
			return fmt.Errorf("notify review: %w", err)
		}
	}
	return nil
}

func (r *Reviewer) review(ctx context.Context, snapshot quotation.Snapshot) (Review, error) {
	answer, err := r.llm.AskOnce(ctx, llm.Question{
		System:  reviewSystem,
		Content: reviewPrompt(snapshot),
	})
	if err != nil {
		return Review{}, fmt.Errorf("ask llm: %w", err)
	}
	var review Review
	if err = extractJSON(answer.Content, &review); err != nil {
		return Review{}, fmt.Errorf("parse review: %w", err)
	}
	return review, nil
}

func reviewPrompt(snapshot quotation.Snapshot) string {
	var b strings.Builder
	b.WriteString("以下是今天收盘时的行情 (代码 名称 现价 昨收 涨跌幅):\n")
	for _, code := range snapshot.Codes() {
		q := snapshot[code]
		pct := decimal.Zero
		if q.Close.IsPositive() {
			pct = q.Now.Sub(q.Close).Div(q.Close).Mul(hundred).Round(2)
		}
		fmt.Fprintf(&b, "%s %s %s %s %s%%\n", code, q.Name, q.Now, q.Close, pct)
	}
	b.WriteString(`请用一句话总结今天的走势, 按如下json格式回复: {"mood": "bullish | bearish | neutral", "summary": "点评"}`)
	return b.String()
}

// extractJSON 取回答中第一个 { 到最后一个 } 之间的内容, 兼容 markdown 代码块
func extractJSON(content string, v any) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return errNoJSON
	}
	return json.Unmarshal([]byte(content[start:end+1]), v)
}
