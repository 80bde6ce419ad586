// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/user00265/dnswire/config"
	"github.com/user00265/dnswire/message"
	"github.com/user00265/dnswire/metrics"
	"github.com/user00265/dnswire/resolver"
)

// multiLevelHandler routes ERROR logs to stderr, everything else to stdout.
type multiLevelHandler struct {
	infoHandler  slog.Handler
	errorHandler slog.Handler
}

func (h *multiLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *multiLevelHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return h.errorHandler.Handle(ctx, r)
	}
	return h.infoHandler.Handle(ctx, r)
}

func (h *multiLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &multiLevelHandler{
		infoHandler:  h.infoHandler.WithAttrs(attrs),
		errorHandler: h.errorHandler.WithAttrs(attrs),
	}
}

func (h *multiLevelHandler) WithGroup(name string) slog.Handler {
	return &multiLevelHandler{
		infoHandler:  h.infoHandler.WithGroup(name),
		errorHandler: h.errorHandler.WithGroup(name),
	}
}

const Version = "1.0.0"

var GitHash = ""

var qtypeByName = map[string]uint16{
	"A":     message.TypeA,
	"AAAA":  message.TypeAAAA,
	"CNAME": message.TypeCNAME,
	"NS":    message.TypeNS,
	"SOA":   message.TypeSOA,
	"TXT":   message.TypeTXT,
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: dnswire [options] domain\n")
	fmt.Fprintf(os.Stderr, "  -c config.yaml   config file (YAML)\n")
	fmt.Fprintf(os.Stderr, "  -s servers       comma-separated server list, overrides config (e.g. 1.1.1.1,tcp://9.9.9.9)\n")
	fmt.Fprintf(os.Stderr, "  -t type          query type: A, AAAA, CNAME, NS, SOA, TXT (default A)\n")
	fmt.Fprintf(os.Stderr, "  -timeout secs    per-query timeout in seconds (default 5)\n")
	fmt.Fprintf(os.Stderr, "  -v               show version\n")
}

func main() {
	handler := &multiLevelHandler{
		infoHandler:  slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		errorHandler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	slog.SetDefault(slog.New(handler))

	var (
		configFile = flag.String("c", "", "config file (YAML)")
		serverList = flag.String("s", "", "comma-separated server list, overrides config")
		qtypeFlag  = flag.String("t", "A", "query type: A, AAAA, CNAME, NS, SOA, TXT")
		timeout    = flag.Int("timeout", 5, "per-query timeout in seconds")
		version    = flag.Bool("v", false, "show version")
	)
	flag.Usage = usage
	flag.Parse()

	if *version {
		versionStr := "dnswire " + Version
		if GitHash != "" {
			versionStr += "+" + GitHash
		}
		fmt.Println(versionStr)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	domain := flag.Arg(0)

	qtype, ok := qtypeByName[strings.ToUpper(*qtypeFlag)]
	if !ok {
		slog.Error("unknown query type", "type", *qtypeFlag)
		os.Exit(1)
	}

	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.LoadConfig(*configFile)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	} else {
		cfg = &config.Config{Resolver: config.ResolverConfig{
			Servers: []string{"1.1.1.1", "8.8.8.8"},
			Timeout: *timeout,
		}}
	}

	servers := cfg.Resolver.Servers
	if *serverList != "" {
		servers = strings.Split(*serverList, ",")
	}

	res, err := resolver.New(servers)
	if err != nil {
		slog.Error("failed to configure resolver", "error", err)
		os.Exit(1)
	}
	queryTimeout := time.Duration(*timeout) * time.Second
	if queryTimeout <= 0 {
		queryTimeout = time.Duration(cfg.Resolver.Timeout) * time.Second
	}
	res.SetTimeout(queryTimeout)

	var m *metrics.Metrics
	if cfg.Metrics.PrometheusEndpoint != "" || cfg.Metrics.OTELEndpoint != "" {
		m, err = metrics.New(cfg.Metrics.OTELEndpoint, cfg.Metrics.PrometheusEndpoint)
		if err != nil {
			slog.Warn("failed to initialize metrics", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	start := time.Now()
	resp, netErrs := res.Query(ctx, domain, qtype)
	elapsed := time.Since(start)

	for _, ne := range netErrs {
		slog.Warn("server query failed", "server", ne.Server, "kind", ne.Kind.String(), "error", ne.Err)
		if m != nil {
			m.RecordError(ne.Server, ne.Kind.String())
		}
	}
	if m != nil {
		m.RecordQuery(strings.Join(servers, ","), strconv.Itoa(int(qtype)))
		m.RecordResponse(strings.Join(servers, ","), resp != nil && len(resp.Answers) > 0)
		if resp != nil {
			m.RecordLatency(strings.Join(servers, ","), float64(elapsed.Microseconds())/1000.0)
		}
	}

	if resp == nil {
		slog.Error("query failed against every configured server", "domain", domain)
		os.Exit(1)
	}

	printResponse(resp)
}

func printResponse(resp *message.Response) {
	fmt.Printf(";; ANSWER SECTION (%d):\n", len(resp.Answers))
	for _, rr := range resp.Answers {
		switch {
		case rr.Data.A != nil:
			fmt.Printf("%s\t%d\tIN\tA\t%s\n", rr.Name, rr.TTL, rr.Data.A)
		case rr.Data.AAAA != nil:
			fmt.Printf("%s\t%d\tIN\tAAAA\t%s\n", rr.Name, rr.TTL, rr.Data.AAAA)
		case rr.Data.CNAME != "":
			fmt.Printf("%s\t%d\tIN\tCNAME\t%s\n", rr.Name, rr.TTL, rr.Data.CNAME)
		case rr.Data.NS != "":
			fmt.Printf("%s\t%d\tIN\tNS\t%s\n", rr.Name, rr.TTL, rr.Data.NS)
		case rr.Data.SOA != nil:
			fmt.Printf("%s\t%d\tIN\tSOA\t%s %s %d %d %d %d %d\n", rr.Name, rr.TTL,
				rr.Data.SOA.MName, rr.Data.SOA.RName, rr.Data.SOA.Serial,
				rr.Data.SOA.Refresh, rr.Data.SOA.Retry, rr.Data.SOA.Expire, rr.Data.SOA.Minimum)
		case rr.Data.TXT != nil:
			var parts []string
			for _, s := range rr.Data.TXT {
				parts = append(parts, strconv.Quote(string(s)))
			}
			fmt.Printf("%s\t%d\tIN\tTXT\t%s\n", rr.Name, rr.TTL, strings.Join(parts, " "))
		default:
			fmt.Printf("%s\t%d\tIN\t%d\t(raw, %d bytes)\n", rr.Name, rr.TTL, rr.Type, len(rr.Raw))
		}
	}
}
