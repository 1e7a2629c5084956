package collector

import (
	"testing"

	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/chainpulse/chainpulse/internal/domain"
)

func TestClassifyBinanceErr(t *testing.T) {
	rateLimited := &common.APIError{Code: binanceTooManyRequests, Message: "Too much request weight used"}
	err := classifyBinanceErr(rateLimited)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))

	apiErr := &common.APIError{Code: -1121, Message: "Invalid symbol"}
	err = classifyBinanceErr(apiErr)
	assert.True(t, errors.Is(err, domain.ErrConnectivity))

	err = classifyBinanceErr(errors.New("dial tcp: connection refused"))
	assert.True(t, errors.Is(err, domain.ErrConnectivity))
}
