package source

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/soldwatch/harvest-cli/internal/config"
	"github.com/soldwatch/harvest-cli/internal/model"
)

// resultRow mirrors one row of the results table as the page renders it.
type resultRow struct {
	Address string `json:"address"`
	Price   string `json:"price"`
	Date    string `json:"date"`
	Link    string `json:"link"`
	Result  string `json:"result"`
}

// rowsJS pulls every row of the auction-results table. The link lives on
// the address cell's anchor and is absent for properties without a
// listing page.
const rowsJS = `
(function() {
	var rows = document.querySelectorAll('.suburb tbody tr');
	var out = [];
	for (var i = 0; i < rows.length; i++) {
		var row = rows[i];
		var cell = function(sel) {
			var el = row.querySelector(sel);
			return el ? el.textContent.trim() : '';
		};
		var anchor = row.querySelector('.col-address a');
		out.push({
			address: cell('.col-address'),
			price: cell('.col-property-price'),
			date: cell('.col-auction-date'),
			result: cell('.col-auction-result'),
			link: anchor && anchor.href ? anchor.href : ''
		});
	}
	return out;
})()
`

// AuctionResults drives a headless browser against the weekly
// auction-results page. The page builds its table client-side, so a plain
// GET is not enough here.
type AuctionResults struct {
	url      string
	headless bool
	timeout  time.Duration
}

// NewAuctionResults creates the browser-backed listing source.
func NewAuctionResults(cfg config.SourceConfig) *AuctionResults {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &AuctionResults{
		url:      cfg.URL,
		headless: cfg.Headless,
		timeout:  timeout,
	}
}

// Listings loads the results page and returns one RawListing per table row.
func (a *AuctionResults) Listings(ctx context.Context) ([]model.RawListing, error) {
	log := zap.L().With(zap.String("url", a.url))
	log.Info("source: starting browser")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", a.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(640, 480),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}),
	)
	defer cancelBrowser()

	runCtx, cancelTimeout := context.WithTimeout(browserCtx, a.timeout)
	defer cancelTimeout()

	var title string
	var rows []resultRow
	err := chromedp.Run(runCtx,
		chromedp.Navigate(a.url),
		chromedp.Title(&title),
		chromedp.Evaluate(rowsJS, &rows),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "source: fetch %s", a.url)
	}

	log.Info("source: results page loaded",
		zap.String("title", title),
		zap.Int("rows", len(rows)),
	)

	listings := make([]model.RawListing, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, r.toListing())
	}
	return listings, nil
}

func (r resultRow) toListing() model.RawListing {
	price, _ := model.ParsePrice(r.Price)

	soldDate, err := ParseAuctionDate(r.Date)
	if err != nil {
		zap.L().Warn("source: unparseable auction date",
			zap.String("address", r.Address),
			zap.String("date", r.Date),
			zap.Error(err),
		)
	}

	return model.RawListing{
		Address:  r.Address,
		Price:    price,
		SoldDate: soldDate,
		Link:     r.Link,
		Result:   r.Result,
	}
}
