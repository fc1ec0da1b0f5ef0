package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"storefront/auth"
	"storefront/model"
	"storefront/service"
	"storefront/store"
)

// Handler is the HTTP layer over service.Service and the auth collaborator.
type Handler struct {
	svc  service.ServiceInterface
	auth auth.Service
	log  *zap.Logger
}

// NewHandler returns a Handler instance. log may be nil.
func NewHandler(s service.ServiceInterface, a auth.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: s, auth: a, log: log}
}

// RegisterRoutes registers all routes on the provided router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Auth
	r.HandleFunc("/auth/signup", h.SignUp).Methods("POST")
	r.HandleFunc("/auth/signin", h.SignIn).Methods("POST")
	r.HandleFunc("/auth/signout", h.SignOut).Methods("POST")
	r.HandleFunc("/auth/me", h.requireUser(h.Me)).Methods("GET")

	// Catalog
	r.HandleFunc("/products/list", h.ListProducts).Methods("GET")
	r.HandleFunc("/products/slug/{slug}", h.GetProductBySlug).Methods("GET")
	r.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	r.HandleFunc("/products", h.requireAdmin(h.CreateProduct)).Methods("POST")
	r.HandleFunc("/products/{id}", h.requireAdmin(h.UpdateProduct)).Methods("PUT")
	r.HandleFunc("/products/{id}", h.requireAdmin(h.DeleteProduct)).Methods("DELETE")
	r.HandleFunc("/variants/{id}/stock", h.requireAdmin(h.GetVariantStock)).Methods("GET")
	r.HandleFunc("/variants/{id}/stock", h.requireAdmin(h.SetVariantStock)).Methods("POST")

	// Cart
	r.HandleFunc("/cart", h.requireUser(h.GetCart)).Methods("GET")
	r.HandleFunc("/cart/add", h.requireUser(h.AddToCart)).Methods("POST")
	r.HandleFunc("/cart/update", h.requireUser(h.UpdateCartLine)).Methods("POST")
	r.HandleFunc("/cart/remove", h.requireUser(h.RemoveFromCart)).Methods("POST")
	r.HandleFunc("/cart/merge", h.requireUser(h.MergeGuestCart)).Methods("POST")

	// Guest cart (device-scoped, no auth)
	r.HandleFunc("/guest-cart", h.GetGuestCart).Methods("GET")
	r.HandleFunc("/guest-cart/add", h.AddToGuestCart).Methods("POST")
	r.HandleFunc("/guest-cart/remove", h.RemoveFromGuestCart).Methods("POST")

	// Checkout
	r.HandleFunc("/checkout/quote", h.requireUser(h.Quote)).Methods("GET")
	r.HandleFunc("/checkout/order", h.requireUser(h.Checkout)).Methods("POST")

	// Orders
	r.HandleFunc("/orders", h.requireUser(h.MyOrders)).Methods("GET")
	r.HandleFunc("/orders/{id}", h.requireUser(h.GetOrder)).Methods("GET")
	r.HandleFunc("/admin/orders", h.requireAdmin(h.AdminListOrders)).Methods("GET")
	r.HandleFunc("/orders/{id}/status", h.requireAdmin(h.UpdateOrderStatus)).Methods("POST")
	r.HandleFunc("/orders/{id}/cancel", h.requireAdmin(h.CancelOrder)).Methods("POST")
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeServiceErr maps error kinds to HTTP statuses.
func (h *Handler) writeServiceErr(w http.ResponseWriter, err error) {
	var stockChanged *store.StockChangedError
	switch {
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrCartEmpty),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidAddress):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stockChanged):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":    "stock changed",
			"variants": stockChanged.VariantIDs,
		})
	case errors.Is(err, store.ErrStockExceeded):
		writeErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrGatewayUnavailable):
		writeErr(w, http.StatusServiceUnavailable, "temporarily unavailable, please retry")
	default:
		h.log.Error("request failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

type ctxKey int

const userKey ctxKey = 0

func userFrom(r *http.Request) model.User {
	u, _ := r.Context().Value(userKey).(model.User)
	return u
}

func bearerToken(r *http.Request) (uuid.UUID, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	token, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, false
	}
	return token, true
}

func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeErr(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		u, err := h.auth.CurrentUser(r.Context(), token)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "session invalid")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	}
}

func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request) {
		u := userFrom(r)
		ok, err := h.auth.IsAdmin(r.Context(), u.ID)
		if err != nil {
			h.writeServiceErr(w, err)
			return
		}
		if !ok {
			writeErr(w, http.StatusForbidden, "admin only")
			return
		}
		next(w, r)
	})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

// deviceID identifies the guest device for local-cart endpoints and for the
// merge performed at sign-in.
func deviceID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Device-ID"))
}

// --- auth ---

type signUpReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeErr(w, http.StatusConflict, err.Error())
			return
		}
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn authenticates and, when the request carries a device ID, merges
// that device's guest cart into the server cart.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	sess, u, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	resp := map[string]interface{}{"token": sess.Token, "user": u}
	if dev := deviceID(r); dev != "" {
		merge, err := h.svc.MergeGuestCart(r.Context(), dev, u.ID)
		if err != nil {
			// Sign-in succeeded; a failed merge is reported, not fatal.
			h.log.Warn("guest cart merge failed", zap.String("user", u.ID.String()), zap.Error(err))
		} else {
			resp["cart_merge"] = merge
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := h.auth.SignOut(r.Context(), token); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r))
}

// --- catalog ---

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ProductFilter{
		Brand:       q.Get("brand"),
		Search:      q.Get("search"),
		PopularOnly: q.Get("popular") == "true",
		RecentFirst: q.Get("recent") == "true",
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeErr(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	ps, err := h.svc.ListProducts(r.Context(), f)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetProductBySlug also returns the variant option sets the product page
// needs: colors with availability and capacities per color.
func (h *Handler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProductBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	colors := service.AvailableColors(p.Variants)
	capacities := map[string][]string{}
	for _, c := range colors {
		capacities[c.Color] = service.CapacitiesForColor(p.Variants, c.Color)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product":    p,
		"colors":     colors,
		"capacities": capacities,
		"selection":  service.DefaultSelection(p.Variants),
	})
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.svc.CreateProduct(r.Context(), &p); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	p.ID = id
	if err := h.svc.UpdateProduct(r.Context(), &p); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) GetVariantStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid variant id")
		return
	}
	stock, err := h.svc.GetVariantStock(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"stock": stock})
}

type setStockReq struct {
	Stock int `json:"stock"`
}

func (h *Handler) SetVariantStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid variant id")
		return
	}
	var req setStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Stock < 0 {
		writeErr(w, http.StatusBadRequest, "stock must be >= 0")
		return
	}
	if err := h.svc.SetVariantStock(r.Context(), id, req.Stock); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- cart ---

type cartLineReq struct {
	ProductID uuid.UUID `json:"product_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity,omitempty"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetCart(r.Context(), userFrom(r).ID)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.svc.AddLine(r.Context(), userFrom(r).ID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type updateLineReq struct {
	LineID   uuid.UUID `json:"line_id"`
	Quantity int       `json:"quantity"`
}

func (h *Handler) UpdateCartLine(w http.ResponseWriter, r *http.Request) {
	var req updateLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.svc.UpdateQuantity(r.Context(), userFrom(r).ID, req.LineID, req.Quantity); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type removeLineReq struct {
	LineID uuid.UUID `json:"line_id"`
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req removeLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.svc.RemoveLine(r.Context(), userFrom(r).ID, req.LineID); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) MergeGuestCart(w http.ResponseWriter, r *http.Request) {
	dev := deviceID(r)
	if dev == "" {
		writeErr(w, http.StatusBadRequest, "X-Device-ID required")
		return
	}
	res, err := h.svc.MergeGuestCart(r.Context(), dev, userFrom(r).ID)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- guest cart ---

func (h *Handler) GetGuestCart(w http.ResponseWriter, r *http.Request) {
	dev := deviceID(r)
	if dev == "" {
		writeErr(w, http.StatusBadRequest, "X-Device-ID required")
		return
	}
	lines, err := h.svc.GuestLines(dev)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

func (h *Handler) AddToGuestCart(w http.ResponseWriter, r *http.Request) {
	dev := deviceID(r)
	if dev == "" {
		writeErr(w, http.StatusBadRequest, "X-Device-ID required")
		return
	}
	var req cartLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.svc.AddGuestLine(dev, req.ProductID, req.VariantID, req.Quantity); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (h *Handler) RemoveFromGuestCart(w http.ResponseWriter, r *http.Request) {
	dev := deviceID(r)
	if dev == "" {
		writeErr(w, http.StatusBadRequest, "X-Device-ID required")
		return
	}
	var req cartLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.svc.RemoveGuestLine(dev, req.ProductID, req.VariantID); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// --- checkout & orders ---

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Quote(r.Context(), userFrom(r).ID)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type checkoutReq struct {
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ord, err := h.svc.Checkout(r.Context(), userFrom(r).ID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ord)
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context(), store.OrderFilter{UserID: userFrom(r).ID})
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid order id")
		return
	}
	ord, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	u := userFrom(r)
	if ord.UserID != u.ID {
		if admin, err := h.auth.IsAdmin(r.Context(), u.ID); err != nil || !admin {
			writeErr(w, http.StatusNotFound, "not found")
			return
		}
	}
	writeJSON(w, http.StatusOK, ord)
}

func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	f := store.OrderFilter{Status: model.OrderStatus(r.URL.Query().Get("status"))}
	orders, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type orderStatusReq struct {
	Status model.OrderStatus `json:"status"`
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req orderStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !req.Status.Valid() {
		writeErr(w, http.StatusBadRequest, "unknown status")
		return
	}
	if err := h.svc.UpdateOrderStatus(r.Context(), id, req.Status); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid order id")
		return
	}
	if err := h.svc.CancelOrder(r.Context(), id); err != nil {
		h.writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
