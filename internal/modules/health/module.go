package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"pip_secure/internal/modules/config"
	"pip_secure/internal/modules/health/service"
	"pip_secure/pkg/logger"
)

type Config struct {
	Addr string // например ":8080"
}

func NewMux(state *service.State) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: все аккаунты запущены (не обязательно подключены)
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// полезный JSON для отладки
		resp := map[string]any{
			"ready":     state.Ready(),
			"uptimeSec": int64(state.Uptime().Seconds()),
			"accounts":  state.Accounts(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Watchdog шумит в лог, когда поллящий аккаунт молчит дольше трёх интервалов:
// обычно это зависший мост, который не отдаёт ни ответ, ни ошибку.
func Watchdog(lc fx.Lifecycle, state *service.State, ctx context.Context) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
					now := time.Now().Unix()
					for login, b := range state.Accounts() {
						if b.State != "POLLING" || b.LastCycle == 0 {
							continue
						}
						stale := int64(3*b.PollInterval/time.Second) + 30
						if now-b.LastCycle > stale {
							logger.Warn("[HEALTH] account=%d (%s) polling but silent for %ds",
								login, b.Name, now-b.LastCycle)
						}
					}
				}
			}()
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			func(cfg *config.Config) Config { return Config{Addr: cfg.Health.Addr} },
			NewMux,
		),
		fx.Invoke(
			RunHTTP,
			Watchdog,
		),
	)
}
