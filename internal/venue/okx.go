package venue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hldesk/internal/models"
	"hldesk/internal/observability"
)

const (
	okxInstrumentsURL  = "https://www.okx.com/api/v5/public/instruments?instType=SWAP"
	okxFundingRateURL  = "https://www.okx.com/api/v5/public/funding-rate?instId=%s"
	okxBatchSize       = 20
)

type okxResponse[T any] struct {
	Code string `json:"code"`
	Data []T    `json:"data"`
}

type okxInstrument struct {
	InstID   string `json:"instId"`
	SettleCcy string `json:"settleCcy"`
	State    string `json:"state"`
}

type okxFundingRate struct {
	InstID          string `json:"instId"`
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

// OKXAdapter has no bulk funding endpoint: it lists instruments, then fans
// out one funding-rate request per instrument in batches, tolerating
// per-instrument failure by skipping that instrument.
type OKXAdapter struct {
	client *Client
}

func NewOKXAdapter() *OKXAdapter {
	return &OKXAdapter{client: NewClient(10, 10)}
}

func (o *OKXAdapter) Name() models.Venue { return models.VenueOKX }

func (o *OKXAdapter) Fetch(ctx context.Context) ([]models.FundingRate, error) {
	start := time.Now()
	defer func() {
		observability.VenueFetchLatency.WithLabelValues(string(models.VenueOKX)).
			Observe(float64(time.Since(start).Milliseconds()))
	}()

	var instResp okxResponse[okxInstrument]
	if err := o.client.GetJSON(ctx, okxInstrumentsURL, &instResp); err != nil {
		observability.VenueFetchErrors.WithLabelValues(string(models.VenueOKX)).Inc()
		return nil, err
	}

	var swaps []okxInstrument
	for _, inst := range instResp.Data {
		if inst.SettleCcy == "USDT" && inst.State == "live" && strings.HasSuffix(inst.InstID, "-USDT-SWAP") {
			swaps = append(swaps, inst)
		}
	}

	now := time.Now().UnixMilli()
	out := make([]models.FundingRate, 0, len(swaps))
	var mu sync.Mutex

	for batchStart := 0; batchStart < len(swaps); batchStart += okxBatchSize {
		batchEnd := batchStart + okxBatchSize
		if batchEnd > len(swaps) {
			batchEnd = len(swaps)
		}
		batch := swaps[batchStart:batchEnd]

		var wg sync.WaitGroup
		for _, inst := range batch {
			wg.Add(1)
			go func(instID string) {
				defer wg.Done()
				var frResp okxResponse[okxFundingRate]
				url := fmt.Sprintf(okxFundingRateURL, instID)
				if err := o.client.GetJSON(ctx, url, &frResp); err != nil || len(frResp.Data) == 0 {
					return
				}
				d := frResp.Data[0]
				rateRaw := parseFloatOr(d.FundingRate, 0)
				nextFunding := int64(parseFloatOr(d.NextFundingTime, 0))

				mu.Lock()
				out = append(out, models.FundingRate{
					Asset:           stripSuffixes(instID, "-USDT-SWAP"),
					Venue:           models.VenueOKX,
					RateRaw:         rateRaw,
					Rate8h:          models.Normalize8h(rateRaw, models.ConventionPer8Hour, 8),
					NextFundingTime: nextFunding,
					ObservedAt:      now,
				})
				mu.Unlock()
			}(inst.InstID)
		}
		wg.Wait()
	}

	return out, nil
}
