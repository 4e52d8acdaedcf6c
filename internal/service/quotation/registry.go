package quotation

import (
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/go-resty/resty/v2"
)

// Clients 数据源依赖的客户端, 未用到的可为 nil
type Clients struct {
	HTTP     *resty.Client
	Binance  *binance.Client
	Location *time.Location
}

// ByName 按配置名构造实时数据源
func ByName(name string, c Clients) (Source, error) {
	switch name {
	case "sina":
		if c.HTTP == nil {
			return nil, fmt.Errorf("source %s: http client required", name)
		}
		return NewSina(c.HTTP, c.Location), nil
	case "binance":
		if c.Binance == nil {
			return nil, fmt.Errorf("source %s: binance client required", name)
		}
		return NewBinance(c.Binance), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}
