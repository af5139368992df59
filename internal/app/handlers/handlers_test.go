package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/linemk/online-store/internal/app/handlers"
	"github.com/linemk/online-store/internal/cart"
	"github.com/linemk/online-store/internal/domain/models"
	"github.com/linemk/online-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/online-store/internal/service"
	"github.com/linemk/online-store/internal/session"
	"github.com/linemk/online-store/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakeAuthService struct {
	token    string
	err      error
	resetErr error
}

var _ service.AuthServiceInterface = (*fakeAuthService)(nil)

func (f *fakeAuthService) Register(ctx context.Context, email, password, firstName, lastName string) (string, error) {
	return f.token, f.err
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return f.token, f.err
}

func (f *fakeAuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return f.token, f.resetErr
}

func (f *fakeAuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return f.resetErr
}

type fakeCatalogService struct {
	products   map[int64]*models.Product
	categories []*models.Category
	lastFilter storage.ProductFilter
}

var _ service.CatalogService = (*fakeCatalogService)(nil)

func (f *fakeCatalogService) ListProducts(ctx context.Context, filter storage.ProductFilter) []*models.Product {
	f.lastFilter = filter
	products := make([]*models.Product, 0, len(f.products))
	for _, p := range f.products {
		products = append(products, p)
	}
	return products
}

func (f *fakeCatalogService) ListCategories(ctx context.Context) []*models.Category {
	if f.categories == nil {
		return []*models.Category{}
	}
	return f.categories
}

func (f *fakeCatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return product, nil
}

type fakeOrderService struct {
	orders map[int64]*models.Order // ключ — id заказа
}

var _ service.OrderService = (*fakeOrderService)(nil)

func (f *fakeOrderService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	orders := []*models.Order{}
	for _, o := range f.orders {
		if o.UserID != nil && *o.UserID == userID {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (f *fakeOrderService) GetOrder(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	o, ok := f.orders[orderID]
	if !ok || o.UserID == nil || *o.UserID != userID {
		return nil, storage.ErrOrderNotFound
	}
	return o, nil
}

type fakeProfileService struct {
	profile *service.ProfileInfo
	err     error
}

var _ service.ProfileService = (*fakeProfileService)(nil)

func (f *fakeProfileService) GetProfile(ctx context.Context, userID int64) (*service.ProfileInfo, error) {
	return f.profile, f.err
}

func (f *fakeProfileService) UpdateProfile(ctx context.Context, userID int64, upd service.ProfileUpdate) (*service.ProfileInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.ProfileInfo{
		FirstName: upd.FirstName,
		LastName:  upd.LastName,
		Email:     upd.Email,
		Phone:     upd.Phone,
		Address:   upd.Address,
	}, nil
}

type fakeCheckoutService struct {
	order      *models.Order
	err        error
	lastUserID *int64
}

var _ service.CheckoutService = (*fakeCheckoutService)(nil)

func (f *fakeCheckoutService) Checkout(ctx context.Context, crt *cart.Cart, contact service.ContactInfo, userID *int64) (*models.Order, error) {
	f.lastUserID = userID
	return f.order, f.err
}

type fakeProductRepo struct {
	products map[int64]*models.Product
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func (f *fakeProductRepo) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]*models.Product, error) {
	var products []*models.Product
	for _, p := range f.products {
		products = append(products, p)
	}
	return products, nil
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return product, nil
}

func (f *fakeProductRepo) GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	return f.GetProductByID(ctx, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestEngine(t *testing.T, products map[int64]*models.Product) *cart.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewRedisStore(rdb, time.Hour)
	return cart.NewEngine(testLogger(), store, &fakeProductRepo{products: products})
}

// withSession подкладывает идентификатор сессии, как это делает middleware.
func withSession(r *http.Request, sessionID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), session.SessionIDKey, sessionID))
}

func withUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), jwtmiddleware.UserIDKey, userID))
}

func TestLoginHandler_Success(t *testing.T) {
	handler := handlers.LoginHandler(testLogger(), &fakeAuthService{token: "jwt-token"})

	body := `{"email": "user@example.com", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.AuthResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "jwt-token", resp.Token)
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	handler := handlers.LoginHandler(testLogger(), &fakeAuthService{err: service.ErrInvalidCredentials})

	body := `{"email": "user@example.com", "password": "wrongpass"}`
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegisterHandler_ValidationErrorsListFields(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{token: "jwt-token"})

	// пароль короче восьми символов, имя отсутствует
	body := `{"email": "user@example.com", "password": "short", "last_name": "Petrov"}`
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "validation error", resp.Error)
	assert.Equal(t, "min", resp.Fields["Password"])
	assert.Equal(t, "required", resp.Fields["FirstName"])
}

func TestRegisterHandler_DuplicateEmailIsFieldError(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{err: storage.ErrEmailTaken})

	body := `{"email": "taken@example.com", "password": "password123", "first_name": "Ivan", "last_name": "Petrov"}`
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "validation error", resp.Error)
	assert.Equal(t, "taken", resp.Fields["email"], "Duplicate email must surface as a field error")
}

func TestLogoutHandler_ExpiresSessionCookie(t *testing.T) {
	handler := handlers.LogoutHandler(testLogger(), "session_id")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	assert.Len(t, cookies, 1)
	assert.Equal(t, "session_id", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestProductListHandler_PassesFiltersThrough(t *testing.T) {
	catalog := &fakeCatalogService{products: map[int64]*models.Product{
		1: {ID: 1, Name: "mug", Price: decimal.NewFromInt(10)},
	}}
	engine := newTestEngine(t, nil)
	handler := handlers.ProductListHandler(testLogger(), catalog, engine)

	req := httptest.NewRequest(http.MethodGet, "/products?category=mugs&q=blue&min_price=5&max_price=20&brand=acme", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "mugs", catalog.lastFilter.CategorySlug)
	assert.Equal(t, "blue", catalog.lastFilter.Query)
	assert.Equal(t, "acme", catalog.lastFilter.Brand)
	assert.NotNil(t, catalog.lastFilter.MinPrice)
	assert.Equal(t, "5", catalog.lastFilter.MinPrice.String())
	assert.NotNil(t, catalog.lastFilter.MaxPrice)
	assert.Equal(t, "20", catalog.lastFilter.MaxPrice.String())
}

func TestProductListHandler_RejectsNonNumericPrice(t *testing.T) {
	engine := newTestEngine(t, nil)
	handler := handlers.ProductListHandler(testLogger(), &fakeCatalogService{}, engine)

	req := httptest.NewRequest(http.MethodGet, "/products?min_price=abc", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProductListHandler_IncludesCartLength(t *testing.T) {
	p := &models.Product{ID: 1, Name: "mug", Price: decimal.NewFromInt(10)}
	catalog := &fakeCatalogService{products: map[int64]*models.Product{1: p}}
	engine := newTestEngine(t, map[int64]*models.Product{1: p})

	ctx := context.Background()
	c := engine.Load(ctx, "sess-1")
	assert.NoError(t, c.Add(ctx, p, 3, false))

	handler := handlers.ProductListHandler(testLogger(), catalog, engine)
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.ProductListResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.CartLength)
}

func TestProductDetailHandler_NotFound(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/products/{id}", handlers.ProductDetailHandler(testLogger(), &fakeCatalogService{}))

	req := httptest.NewRequest(http.MethodGet, "/products/99", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCartAddHandler_GetAddsSingleUnit(t *testing.T) {
	p := &models.Product{ID: 1, Name: "mug", Price: decimal.NewFromInt(10)}
	catalog := &fakeCatalogService{products: map[int64]*models.Product{1: p}}
	engine := newTestEngine(t, map[int64]*models.Product{1: p})

	router := chi.NewRouter()
	router.Get("/cart/add/{id}", handlers.CartAddHandler(testLogger(), catalog, engine))

	req := httptest.NewRequest(http.MethodGet, "/cart/add/1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.CartResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Length)
	assert.Equal(t, "10", resp.TotalPrice.String())
}

func TestCartAddHandler_PostWithUpdateReplacesQuantity(t *testing.T) {
	p := &models.Product{ID: 1, Name: "mug", Price: decimal.NewFromInt(10)}
	catalog := &fakeCatalogService{products: map[int64]*models.Product{1: p}}
	engine := newTestEngine(t, map[int64]*models.Product{1: p})

	router := chi.NewRouter()
	router.Post("/cart/add/{id}", handlers.CartAddHandler(testLogger(), catalog, engine))

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/cart/add/1", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, withSession(req, "sess-1"))
		return rr
	}

	assert.Equal(t, http.StatusOK, do(`{"quantity": 3}`).Code)
	rr := do(`{"quantity": 5, "update": true}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp handlers.CartResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Length, "Update mode replaces the quantity")
}

func TestCartAddHandler_UnknownProduct(t *testing.T) {
	engine := newTestEngine(t, nil)

	router := chi.NewRouter()
	router.Get("/cart/add/{id}", handlers.CartAddHandler(testLogger(), &fakeCatalogService{}, engine))

	req := httptest.NewRequest(http.MethodGet, "/cart/add/99", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCartAddHandler_RejectsZeroQuantity(t *testing.T) {
	p := &models.Product{ID: 1, Name: "mug", Price: decimal.NewFromInt(10)}
	catalog := &fakeCatalogService{products: map[int64]*models.Product{1: p}}
	engine := newTestEngine(t, map[int64]*models.Product{1: p})

	router := chi.NewRouter()
	router.Post("/cart/add/{id}", handlers.CartAddHandler(testLogger(), catalog, engine))

	// required на ненулевом int отсеивает нулевое количество еще на валидации
	req := httptest.NewRequest(http.MethodPost, "/cart/add/1", bytes.NewBufferString(`{"quantity": 0}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCartRemoveHandler_RemovesLine(t *testing.T) {
	p := &models.Product{ID: 1, Name: "mug", Price: decimal.NewFromInt(10)}
	engine := newTestEngine(t, map[int64]*models.Product{1: p})

	ctx := context.Background()
	c := engine.Load(ctx, "sess-1")
	assert.NoError(t, c.Add(ctx, p, 2, false))

	router := chi.NewRouter()
	router.Get("/cart/remove/{id}", handlers.CartRemoveHandler(testLogger(), engine))

	req := httptest.NewRequest(http.MethodGet, "/cart/remove/1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.CartResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Length)
}

func TestCheckoutSubmitHandler_GuestOrder(t *testing.T) {
	engine := newTestEngine(t, nil)
	checkout := &fakeCheckoutService{order: &models.Order{ID: 7}}
	handler := handlers.CheckoutSubmitHandler(testLogger(), engine, checkout)

	body := `{"first_name": "Ivan", "last_name": "Petrov", "email": "ivan@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, checkout.lastUserID, "Guest checkout carries no user")

	var order models.Order
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))
	assert.Equal(t, int64(7), order.ID)
}

func TestCheckoutSubmitHandler_AttachesAuthenticatedUser(t *testing.T) {
	engine := newTestEngine(t, nil)
	checkout := &fakeCheckoutService{order: &models.Order{ID: 7}}
	handler := handlers.CheckoutSubmitHandler(testLogger(), engine, checkout)

	body := `{"first_name": "Ivan", "last_name": "Petrov", "email": "ivan@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withUser(withSession(req, "sess-1"), 42))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, checkout.lastUserID)
	assert.Equal(t, int64(42), *checkout.lastUserID)
}

func TestCheckoutSubmitHandler_InvalidFormDoesNotReachService(t *testing.T) {
	engine := newTestEngine(t, nil)
	checkout := &fakeCheckoutService{order: &models.Order{ID: 7}}
	handler := handlers.CheckoutSubmitHandler(testLogger(), engine, checkout)

	body := `{"first_name": "Ivan", "email": "not-an-email"}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "required", resp.Fields["LastName"])
	assert.Equal(t, "email", resp.Fields["Email"])
}

func TestCheckoutSubmitHandler_EmptyCart(t *testing.T) {
	engine := newTestEngine(t, nil)
	checkout := &fakeCheckoutService{err: service.ErrEmptyCart}
	handler := handlers.CheckoutSubmitHandler(testLogger(), engine, checkout)

	body := `{"first_name": "Ivan", "last_name": "Petrov", "email": "ivan@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCheckoutSubmitHandler_UnavailableLines(t *testing.T) {
	engine := newTestEngine(t, nil)
	checkout := &fakeCheckoutService{err: service.ErrUnavailableLines}
	handler := handlers.CheckoutSubmitHandler(testLogger(), engine, checkout)

	body := `{"first_name": "Ivan", "last_name": "Petrov", "email": "ivan@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCheckoutFormHandler_PrefillsContactForAuthenticatedUser(t *testing.T) {
	engine := newTestEngine(t, nil)
	profile := &fakeProfileService{profile: &service.ProfileInfo{
		FirstName: "Ivan", LastName: "Petrov", Email: "ivan@example.com",
	}}
	handler := handlers.CheckoutFormHandler(testLogger(), engine, profile)

	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withUser(withSession(req, "sess-1"), 42))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.CheckoutFormResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Contact)
	assert.Equal(t, "ivan@example.com", resp.Contact.Email)
}

func TestCheckoutFormHandler_GuestGetsNoContact(t *testing.T) {
	engine := newTestEngine(t, nil)
	handler := handlers.CheckoutFormHandler(testLogger(), engine, &fakeProfileService{})

	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withSession(req, "sess-1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.CheckoutFormResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Nil(t, resp.Contact)
}

func TestOrderDetailHandler_ForeignOrderIs404(t *testing.T) {
	owner := int64(1)
	orders := &fakeOrderService{orders: map[int64]*models.Order{
		7: {ID: 7, UserID: &owner},
	}}

	router := chi.NewRouter()
	router.Get("/orders/{id}", handlers.OrderDetailHandler(testLogger(), orders))

	req := httptest.NewRequest(http.MethodGet, "/orders/7", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withUser(req, 999))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOrderListHandler_ReturnsOwnOrders(t *testing.T) {
	owner := int64(42)
	other := int64(1)
	orders := &fakeOrderService{orders: map[int64]*models.Order{
		7: {ID: 7, UserID: &owner},
		8: {ID: 8, UserID: &other},
	}}
	handler := handlers.OrderListHandler(testLogger(), orders)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withUser(req, 42))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got []*models.Order
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)
}

func TestProfileUpdateHandler_RejectsMalformedEmail(t *testing.T) {
	handler := handlers.ProfileUpdateHandler(testLogger(), &fakeProfileService{})

	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(`{"email": "not-an-email"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withUser(req, 42))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProfileHandler_Unauthorized(t *testing.T) {
	handler := handlers.ProfileHandler(testLogger(), &fakeProfileService{err: errors.New("unused")})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
