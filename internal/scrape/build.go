package scrape

import (
	"context"
	"fmt"
	"log"

	"jobhunt-aggregator/internal/browser"
	"jobhunt-aggregator/internal/config"
	"jobhunt-aggregator/internal/events"
	"jobhunt-aggregator/internal/scrape/custom"
	"jobhunt-aggregator/internal/scrape/email"
	"jobhunt-aggregator/internal/scrape/greenhouse"
	"jobhunt-aggregator/internal/scrape/lever"
	"jobhunt-aggregator/internal/scrape/pool"
	"jobhunt-aggregator/internal/scrape/smartrecruiters"
	"jobhunt-aggregator/internal/scrape/types"
	"jobhunt-aggregator/internal/scrape/util"
	"jobhunt-aggregator/internal/scrape/workday"
	"jobhunt-aggregator/internal/secrets"
)

// Deps are the runtime collaborators the adapters share.
type Deps struct {
	Hub   *events.Hub
	RunID string

	// Launcher overrides the chromedp launcher built from cfg.Browser.
	Launcher browser.Launcher
	// Dialer overrides the IMAP dialer built from cfg.Email.
	Dialer email.Dialer
	// Password looks up the IMAP password; defaults to the keychain/env lookup.
	Password func(account string) (string, error)
}

// BuildFetchers constructs one adapter per enabled source with at least one
// board, in a fixed order. Only an invalid custom flow is an error.
func BuildFetchers(cfg config.Config, deps Deps) ([]types.Fetcher, error) {
	limiter := util.NewHostLimiter(cfg.RateLimit.PerHostRPS, cfg.RateLimit.Burst)
	boardPool := pool.Options{
		Workers:      cfg.Concurrency.BoardsPerSource,
		BoardTimeout: cfg.BoardTimeout(),
		Hub:          deps.Hub,
		RunID:        deps.RunID,
	}

	var fetchers []types.Fetcher

	src := cfg.Sources
	if src.Greenhouse.Enabled && len(src.Greenhouse.Companies) > 0 {
		fetchers = append(fetchers, greenhouse.New(greenhouse.Config{
			Boards:  mapBoards(src.Greenhouse.Companies),
			RootURL: src.Greenhouse.RootURL,
			Pool:    boardPool,
		}, limiter))
	}
	if src.Lever.Enabled && len(src.Lever.Companies) > 0 {
		fetchers = append(fetchers, lever.New(lever.Config{
			Boards:  mapBoards(src.Lever.Companies),
			RootURL: src.Lever.RootURL,
			Pool:    boardPool,
		}, limiter))
	}
	if src.SmartRecruiters.Enabled && len(src.SmartRecruiters.Companies) > 0 {
		fetchers = append(fetchers, smartrecruiters.New(smartrecruiters.Config{
			Boards:  mapBoards(src.SmartRecruiters.Companies),
			APIRoot: src.SmartRecruiters.RootURL,
			Pool:    boardPool,
		}, limiter))
	}
	if src.Workday.Enabled && len(src.Workday.Boards) > 0 {
		fetchers = append(fetchers, workday.New(workday.Config{
			Boards: mapWorkdayBoards(src.Workday.Boards),
			Pool:   boardPool,
		}, limiter))
	}
	if src.Custom.Enabled && len(src.Custom.Sites) > 0 {
		launcher := deps.Launcher
		if launcher == nil {
			launcher = browser.Chrome{Headful: cfg.Browser.Headful, ExecPath: cfg.Browser.ExecPath}
		}
		browserPool := boardPool
		browserPool.Workers = cfg.Concurrency.Browsers

		cs, err := custom.New(custom.Config{
			Sites:       mapCustomSites(src.Custom.Sites),
			Launcher:    launcher,
			WaitTimeout: cfg.WaitTimeout(),
			Pool:        browserPool,
		})
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, cs)
	}
	if cfg.Email.Enabled {
		dialer := deps.Dialer
		if dialer == nil {
			dialer = imapDialer(cfg.Email, deps.Password)
		}
		fetchers = append(fetchers, email.New(email.Config{
			Dialer:      dialer,
			Boards:      mapAlertBoards(cfg.Email.Boards),
			SubjectAny:  cfg.Email.SearchSubjectAny,
			SinceDays:   cfg.Email.SinceDays,
			MaxMessages: cfg.Email.MaxMessages,
			Hub:         deps.Hub,
			RunID:       deps.RunID,
		}))
	}

	names := make([]string, 0, len(fetchers))
	for _, f := range fetchers {
		names = append(names, f.Name())
	}
	log.Printf("[scrape] fetchers=%v", names)
	return fetchers, nil
}

// imapDialer resolves the password lazily so a missing secret becomes a
// mailbox failure in the run instead of a startup error.
func imapDialer(ec config.Email, password func(string) (string, error)) email.Dialer {
	if password == nil {
		password = secrets.GetIMAPPassword
	}
	return lazyDialer{
		account:  secrets.IMAPKeyringAccount(ec.Username, ec.IMAPHost),
		password: password,
		imap: email.IMAP{
			Host:     ec.IMAPHost,
			Port:     ec.IMAPPort,
			Username: ec.Username,
			Mailbox:  ec.Mailbox,
		},
	}
}

type lazyDialer struct {
	account  string
	password func(string) (string, error)
	imap     email.IMAP
}

func (d lazyDialer) Open(ctx context.Context) (email.Mailbox, error) {
	pw, err := d.password(d.account)
	if err != nil {
		return nil, fmt.Errorf("imap password for %s: %w", d.account, err)
	}
	d.imap.Password = pw
	return d.imap.Open(ctx)
}
