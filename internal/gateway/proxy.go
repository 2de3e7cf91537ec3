package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/medflow/hospital-backend/pkg/config"
	pkghttp "github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
)

// Proxy fronts the pharmacy and appointment services under one origin
type Proxy struct {
	log              *logger.Logger
	client           *http.Client
	upstreams        map[string]*url.URL
	pharmacyProxy    *httputil.ReverseProxy
	appointmentProxy *httputil.ReverseProxy
}

// NewProxy creates a new proxy instance
func NewProxy(cfg *config.ServicesConfig, log *logger.Logger) (*Proxy, error) {
	p := &Proxy{
		log:       log.WithComponent("gateway"),
		client:    &http.Client{Timeout: cfg.HealthTimeout},
		upstreams: make(map[string]*url.URL, 2),
	}

	var err error
	if p.pharmacyProxy, err = p.createProxy("pharmacy", cfg.PharmacyURL); err != nil {
		return nil, err
	}
	if p.appointmentProxy, err = p.createProxy("appointment", cfg.AppointmentURL); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Proxy) createProxy(name, targetURL string) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(targetURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid %s service url %q", name, targetURL)
	}
	p.upstreams[name] = target

	proxy := httputil.NewSingleHostReverseProxy(target)

	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = target.Host
	}

	// CORS is answered at the gateway
	proxy.ModifyResponse = func(resp *http.Response) error {
		for key := range resp.Header {
			if strings.HasPrefix(key, "Access-Control-") {
				resp.Header.Del(key)
			}
		}
		return nil
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		p.log.WithError(err).Error().Str("upstream", name).Str("path", r.URL.Path).Msg("proxy error")
		pkghttp.JSON(w, http.StatusBadGateway, pkghttp.ErrorBody{
			Detail: name + " service unavailable",
			Code:   "BAD_GATEWAY",
		})
	}

	return proxy, nil
}

// ForwardToPharmacy forwards requests to the pharmacy service
func (p *Proxy) ForwardToPharmacy(w http.ResponseWriter, r *http.Request) {
	p.pharmacyProxy.ServeHTTP(w, r)
}

// ForwardToAppointments forwards requests to the appointment service
func (p *Proxy) ForwardToAppointments(w http.ResponseWriter, r *http.Request) {
	p.appointmentProxy.ServeHTTP(w, r)
}

// UpstreamHealth probes each service's /health concurrently
func (p *Proxy) UpstreamHealth(ctx context.Context) map[string]string {
	var mu sync.Mutex
	var wg sync.WaitGroup
	out := make(map[string]string, len(p.upstreams))

	for name, target := range p.upstreams {
		wg.Add(1)
		go func(name string, target *url.URL) {
			defer wg.Done()
			status := p.probe(ctx, target.JoinPath("health").String())
			mu.Lock()
			out[name] = status
			mu.Unlock()
		}(name, target)
	}
	wg.Wait()

	return out
}

func (p *Proxy) probe(ctx context.Context, healthURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return "unhealthy"
	}
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn().Err(err).Str("url", healthURL).Msg("upstream health check failed")
		return "unhealthy"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "unhealthy"
	}
	p.log.Debug().Str("url", healthURL).Dur("latency", time.Since(start)).Msg("upstream healthy")
	return "healthy"
}

// Health reports the gateway and its upstreams. Any unhealthy upstream degrades the gateway.
func (p *Proxy) Health(w http.ResponseWriter, r *http.Request) {
	upstreams := p.UpstreamHealth(r.Context())

	status := "healthy"
	for _, s := range upstreams {
		if s != "healthy" {
			status = "degraded"
		}
	}

	pkghttp.JSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"service":   "api-gateway",
		"upstreams": upstreams,
	})
}
