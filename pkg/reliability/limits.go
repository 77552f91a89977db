// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reliability

import (
	"net/http"

	"tailr/pkg/log"

	"golang.org/x/time/rate"
)

// RequestLimiter bounds the number of HTTP requests handled concurrently,
// so a traffic burst is shed at the edge instead of exhausting the database
// connection pool behind it. Requests beyond the in-flight bound are
// rejected, not queued. An x/time/rate Limiter additionally caps the rate
// at which admitted requests proceed to the handler.
type RequestLimiter struct {
	sem     chan struct{}
	limiter *rate.Limiter
}

// NewRequestLimiter creates a limiter admitting at most maxInFlight
// concurrent requests, each additionally throttled to ratePerSecond
// admissions per second with a burst of maxInFlight.
func NewRequestLimiter(maxInFlight int, ratePerSecond float64) *RequestLimiter {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	if ratePerSecond <= 0 {
		ratePerSecond = float64(maxInFlight)
	}

	return &RequestLimiter{
		sem:     make(chan struct{}, maxInFlight),
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), maxInFlight),
	}
}

// Middleware rejects requests with 503 once maxInFlight is reached, and
// otherwise waits for the rate limiter's token before calling next.
func (rl *RequestLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case rl.sem <- struct{}{}:
		default:
			log.Warn("request rejected, in-flight limit reached",
				log.String("method", r.Method),
				log.String("path", r.URL.Path),
				log.Component("request-limiter"))
			http.Error(w, "server busy", http.StatusServiceUnavailable)
			return
		}
		defer func() { <-rl.sem }()

		if err := rl.limiter.Wait(r.Context()); err != nil {
			http.Error(w, "request canceled", http.StatusServiceUnavailable)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// InFlight reports the number of requests currently admitted.
func (rl *RequestLimiter) InFlight() int {
	return len(rl.sem)
}

// Capacity reports the configured maximum in-flight request count.
func (rl *RequestLimiter) Capacity() int {
	return cap(rl.sem)
}
