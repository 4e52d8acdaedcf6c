package decimalx

import (
	"strings"

	"github.com/shopspring/decimal"
)

func MustFromString(s string) decimal.Decimal {
	f, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Parser 连续解析多个字段, 记录第一个错误
type Parser struct {
	err error
}

// Decimal 解析数字, 允许千分位逗号与空白
func (p *Parser) Decimal(s string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		p.err = err
		return decimal.Zero
	}
	return d
}

// Int 解析整数, 小数部分截断
func (p *Parser) Int(s string) int64 {
	return p.Decimal(s).IntPart()
}

func (p *Parser) Err() error {
	return p.err
}
