package exchange

import (
	"context"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/anthropics/hawkbit-go-client/internal/otel"
)

// dnsRetryAttempts and dnsRetryInterval mirror the C client's fixed DNS
// resolution retry loop (spec.md §4.3): a flaky resolver on an embedded
// network stack is retried a bounded number of times before the exchange
// gives up and surfaces a transport error.
const (
	dnsRetryAttempts = 10
	dnsRetryInterval = time.Millisecond
)

// dialerWithDNSRetry returns a net.Dialer.DialContext replacement that
// makes up to dnsRetryAttempts dial attempts with a constant
// dnsRetryInterval backoff between them, recording each failed attempt
// against the dns_retries counter. Each attempt is a whole dial, so a
// failed TCP connect is retried the same way as a failed DNS resolution.
func dialerWithDNSRetry(base *net.Dialer, metrics *otel.Metrics) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var conn net.Conn

		operation := func() error {
			c, err := base.DialContext(ctx, network, addr)
			if err != nil {
				if metrics != nil {
					metrics.RecordDNSRetry(ctx)
				}
				return err
			}
			conn = c
			return nil
		}

		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(dnsRetryInterval), dnsRetryAttempts-1),
			ctx,
		)
		if err := backoff.Retry(operation, policy); err != nil {
			return nil, err
		}
		return conn, nil
	}
}
