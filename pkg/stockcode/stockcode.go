package stockcode

import (
	"strings"

	"github.com/samber/lo"
)

const (
	Shanghai = "sh"
	Shenzhen = "sz"
)

var (
	shPrefixes = []string{"50", "51", "60", "90", "110", "113", "132", "204"}
	szPrefixes = []string{"00", "13", "18", "15", "16", "20", "30", "39", "115", "1318"}
)

// Exchange 判断股票代码对应的证券市场
// 以 sh/sz 开头直接返回, 否则按代码前缀判断, 5/6/9 开头为 sh, 其余为 sz
func Exchange(code string) string {
	code = strings.ToLower(code)
	if strings.HasPrefix(code, Shanghai) || strings.HasPrefix(code, Shenzhen) {
		return code[:2]
	}
	if hasAnyPrefix(code, shPrefixes) {
		return Shanghai
	}
	if hasAnyPrefix(code, szPrefixes) {
		return Shenzhen
	}
	if hasAnyPrefix(code, []string{"5", "6", "9"}) {
		return Shanghai
	}
	return Shenzhen
}

// Symbol 带市场前缀的代码, 如 sh600887
func Symbol(code string) string {
	code = strings.ToLower(code)
	if strings.HasPrefix(code, Shanghai) || strings.HasPrefix(code, Shenzhen) {
		return code
	}
	return Exchange(code) + code
}

// Strip 去掉市场前缀
func Strip(symbol string) string {
	lower := strings.ToLower(symbol)
	if strings.HasPrefix(lower, Shanghai) || strings.HasPrefix(lower, Shenzhen) {
		return symbol[2:]
	}
	return symbol
}

func hasAnyPrefix(s string, prefixes []string) bool {
	return lo.ContainsBy(prefixes, func(p string) bool {
		return strings.HasPrefix(s, p)
	})
}

// PricePlaces 最小报价单位的小数位数, 场内基金与债券 3 位, 股票 2 位
func PricePlaces(code string) int32 {
	if hasAnyPrefix(Strip(code), []string{"15", "16", "18", "50", "51", "52", "56", "58", "11", "12"}) {
		return 3
	}
	return 2
}
