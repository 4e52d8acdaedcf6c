package strategy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/darknessitachi/pquant/internal/service/engine"
	"github.com/darknessitachi/pquant/pkg/stockcode"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var ErrInvalidGrid = errors.New("invalid grid config")

var hundred = decimal.NewFromInt(100)

// GridConfig 单个标的的网格参数, 百分比字段单位为 %
type GridConfig struct {
	Code           string  `mapstructure:"code"`
	InitPrice      float64 `mapstructure:"init_price"`
	UpSize         float64 `mapstructure:"up_size"`
	DownSize       float64 `mapstructure:"down_size"`
	UpVal          float64 `mapstructure:"up_val"`   // 每格卖出金额
	DownVal        float64 `mapstructure:"down_val"` // 每格买入金额
	ValCoefficient float64 `mapstructure:"val_coefficient"`
}

func (c GridConfig) validate() error {
	if c.Code == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidGrid)
	}
	if c.InitPrice <= 0 || c.UpSize <= 0 || c.DownSize <= 0 {
		return fmt.Errorf("%w: %s needs positive init_price, up_size and down_size", ErrInvalidGrid, c.Code)
	}
	if c.UpVal < 0 || c.DownVal < 0 || c.ValCoefficient < 0 {
		return fmt.Errorf("%w: %s has negative amount settings", ErrInvalidGrid, c.Code)
	}
	return nil
}

type gridState struct {
	cfg   GridConfig
	level int
	up    decimal.Decimal
	down  decimal.Decimal
}

// Grid 网格交易: 价格每上穿一格卖出, 每下穿一格买入, 随后网格整体移动一格
type Grid struct {
	Base
	log      zerolog.Logger
	onSignal func(Signal)

	mu    sync.Mutex
	grids map[string]*gridState
}

type GridOption func(g *Grid)

func WithGridLogger(l zerolog.Logger) GridOption {
	return func(g *Grid) {
		g.log = l.With().Str("strategy", g.Name()).Logger()
	}
}

// WithSignalHandler 每个信号的回调, 在持有策略锁时调用
func WithSignalHandler(fn func(Signal)) GridOption {
	return func(g *Grid) {
		g.onSignal = fn
	}
}

func NewGrid(configs []GridConfig, opts ...GridOption) (*Grid, error) {
	g := &Grid{
		log:      zerolog.Nop(),
		onSignal: func(Signal) {},
		grids:    make(map[string]*gridState, len(configs)),
	}
	for _, cfg := range configs {
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		st := &gridState{cfg: cfg}
		st.setLevel(0)
		g.grids[cfg.Code] = st
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Grid) Name() string {
	return "grid"
}

// Codes 需要订阅行情的标的
func (g *Grid) Codes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	codes := lo.Keys(g.grids)
	slices.Sort(codes)
	return codes
}

// Level 当前所在网格, 0 为初始价格
func (g *Grid) Level(code string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.grids[code]; ok {
		return st.level
	}
	return 0
}

func (g *Grid) OnQuotation(_ context.Context, p engine.QuotationPayload) error {
	for _, code := range p.Snapshot.Codes() {
		q := p.Snapshot[code]
		g.check(code, q.Now, q.Time)
	}
	return nil
}

func (g *Grid) OnFlashback(_ context.Context, p engine.FlashbackPayload) error {
	g.check(p.Code, p.Bar.Close, p.Bar.Time)
	return nil
}

func (g *Grid) check(code string, price decimal.Decimal, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.grids[code]
	// 停牌时现价为 0
	if !ok || !price.IsPositive() {
		return
	}

	var side Side
	switch {
	case price.GreaterThanOrEqual(st.up):
		side = Sell
	case price.LessThanOrEqual(st.down):
		side = Buy
	default:
		return
	}

	sig := Signal{
		Strategy: g.Name(),
		Code:     code,
		Side:     side,
		Price:    price,
		Amount:   st.amount(side),
		Level:    st.level,
		Time:     at,
	}
	if side == Sell {
		st.setLevel(st.level + 1)
	} else {
		st.setLevel(st.level - 1)
	}

	g.log.Info().
		Str("code", code).
		Str("side", string(side)).
		Str("price", price.String()).
		Str("amount", sig.Amount.String()).
		Int("level", sig.Level).
		Str("next_up", st.up.String()).
		Str("next_down", st.down.String()).
		Msg("grid signal")
	g.onSignal(sig)
}

func (st *gridState) setLevel(level int) {
	st.level = level
	st.up = st.price(level + 1)
	st.down = st.price(level - 1)
}

// price 第 level 格的价格, 按标的报价精度取整
func (st *gridState) price(level int) decimal.Decimal {
	base := decimal.NewFromFloat(st.cfg.InitPrice)
	var p decimal.Decimal
	if level > 0 {
		rate := decimal.NewFromFloat(st.cfg.UpSize).Div(hundred).Add(decimal.NewFromInt(1))
		p = base.Mul(rate.Pow(decimal.NewFromInt(int64(level))))
	} else {
		rate := decimal.NewFromFloat(st.cfg.DownSize).Div(hundred).Add(decimal.NewFromInt(1))
		p = base.Div(rate.Pow(decimal.NewFromInt(int64(-level))))
	}
	return p.Round(stockcode.PricePlaces(st.cfg.Code))
}

// amount 离初始价格越远, 每格金额按系数放大
func (st *gridState) amount(side Side) decimal.Decimal {
	level := st.level
	if level < 0 {
		level = -level
	}
	rate := decimal.NewFromFloat(st.cfg.ValCoefficient).Div(hundred).Add(decimal.NewFromInt(1)).
		Pow(decimal.NewFromInt(int64(level)))
	base := st.cfg.DownVal
	if side == Sell {
		base = st.cfg.UpVal
	}
	return rate.Mul(decimal.NewFromFloat(base)).Round(2)
}
