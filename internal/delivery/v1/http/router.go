package http

import (
	"net/http"
	"time"

	_ "github.com/DRSN-tech/storefront-sync/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/storefront-sync/internal/usecase"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

// Init регистрирует маршруты. Группа маршрутов не регистрируется, если её usecase равен nil
// (роль процесса не включает админку или витрину).
func (r *Router) Init(catalogUC usecase.CatalogUC, storefrontUC usecase.StorefrontUC, cartUC usecase.CartUC) {
	r.router.Use(middleware.RequestID, middleware.Recoverer, r.logRequests)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		if catalogUC != nil {
			registerAdminRoutes(v1, NewAdminHandler(catalogUC, r.logger))
		}
		if storefrontUC != nil {
			registerStoreRoutes(v1, NewStoreHandler(storefrontUC, r.logger))
			if cartUC != nil {
				registerCartRoutes(v1, NewCartHandler(cartUC, storefrontUC, r.logger))
			}
		}
	})
}

func registerAdminRoutes(router chi.Router, h *AdminHandler) {
	router.Route("/admin", func(ad chi.Router) {
		ad.Get("/products", h.listProducts)
		ad.Post("/products", h.createProduct)
		ad.Get("/products/{id}", h.getProduct)
		ad.Patch("/products/{id}", h.updateProduct)
		ad.Delete("/products/{id}", h.deleteProduct)
		ad.Post("/sync", h.syncProducts)
		ad.Get("/export", h.exportProducts)
	})
}

func registerStoreRoutes(router chi.Router, h *StoreHandler) {
	router.Route("/store", func(st chi.Router) {
		st.Get("/products", h.listProducts)
		st.Get("/products/{category}/{id}", h.getProduct)
		st.Get("/search", h.search)
		st.Get("/categories", h.categories)
		st.Get("/models", h.models)
		st.Get("/random", h.random)
		st.Post("/refresh", h.refresh)
	})
}

func registerCartRoutes(router chi.Router, h *CartHandler) {
	router.Route("/cart", func(ct chi.Router) {
		ct.Get("/", h.getCart)
		ct.Delete("/", h.clear)
		ct.Post("/items", h.addItem)
		ct.Patch("/items/{index}", h.changeQuantity)
		ct.Delete("/items/{index}", h.removeItem)
		ct.Post("/checkout", h.checkout)
	})
}

func (r *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, req)

		r.logger.Debugf("%s %s %d %s request_id=%s",
			req.Method, req.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(req.Context()))
	})
}
