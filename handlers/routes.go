package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"jywanonton/api"
)

// Routes bundles the handlers mounted by Register. Nil handlers are skipped.
type Routes struct {
	Drama    *DramaHandler
	Images   *ImageProxyHandler
	Notice   *NoticeHandler
	Logs     *LogsHandler
	Cache    *CacheHandler
	Static   http.Handler
	AdminKey string
	Limiter  *api.IPRateLimiter
}

// Register mounts the public API under /api, the admin routes under
// /api/admin and the static site as the fallback.
func Register(r *mux.Router, rt Routes) {
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.RateLimit(rt.Limiter))

	apiRouter.HandleFunc("/version", GetVersion).Methods(http.MethodGet)

	if d := rt.Drama; d != nil {
		get := func(path string, h http.HandlerFunc) {
			apiRouter.HandleFunc(path, h).Methods(http.MethodGet)
		}
		get("/search", d.Search)
		get("/detail", d.Detail)
		get("/episodes", d.Episodes)
		get("/episode", d.Episode)
		get("/stream", d.Stream)
		get("/latest", d.Latest)
		get("/trending", d.Trending)
		get("/for-you", d.ForYou)
		get("/vip", d.VIP)
		get("/dubbed", d.Dubbed)
		get("/random", d.Random)
		get("/popular-searches", d.PopularSearches)
		get("/home", d.Home)
	}

	if rt.Images != nil {
		apiRouter.Handle("/proxy-image", rt.Images).Methods(http.MethodGet)
		apiRouter.Handle("/proxy", rt.Images).Methods(http.MethodGet)
	}

	admin := apiRouter.PathPrefix("/admin").Subrouter()
	admin.Use(api.AdminKeyMiddleware(rt.AdminKey))
	if rt.Notice != nil {
		apiRouter.HandleFunc("/notice", rt.Notice.Get).Methods(http.MethodGet)
		admin.HandleFunc("/notice", rt.Notice.Update).Methods(http.MethodPost)
	}
	if rt.Logs != nil {
		admin.HandleFunc("/logs", rt.Logs.Tail).Methods(http.MethodGet)
	}
	if rt.Cache != nil {
		admin.HandleFunc("/cache/clear", rt.Cache.Clear).Methods(http.MethodPost)
	}

	if rt.Static != nil {
		r.PathPrefix("/").Handler(rt.Static).Methods(http.MethodGet, http.MethodHead)
	}
}
