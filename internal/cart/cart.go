package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/online-store/internal/domain/models"
	"github.com/linemk/online-store/internal/session"
	"github.com/linemk/online-store/internal/storage"
	"github.com/shopspring/decimal"
)

// имя блоба с корзиной внутри сессии
const blobName = "cart"

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Line — одна строка корзины: товар, количество и цена,
// зафиксированная в момент добавления. Смена цены в каталоге
// на уже добавленную строку не влияет.
type Line struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Item — строка корзины, обогащённая актуальными данными каталога.
// Unavailable выставляется, если товар из каталога исчез: такая строка
// не выбрасывается молча, чтобы сумма корзины сходилась с тем, что видит посетитель.
type Item struct {
	Line
	Product     *models.Product `json:"product,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Unavailable bool            `json:"unavailable,omitempty"`
}

// Engine создаёт корзины, привязанные к сессиям.
type Engine struct {
	log      *slog.Logger
	store    session.Store
	products storage.ProductStorage
}

func NewEngine(log *slog.Logger, store session.Store, products storage.ProductStorage) *Engine {
	return &Engine{
		log:      log,
		store:    store,
		products: products,
	}
}

// Cart — корзина одной сессии. Строки хранятся в порядке добавления.
type Cart struct {
	engine    *Engine
	sessionID string
	lines     []Line
}

// Load привязывает корзину к сессии. Не возвращает ошибку:
// отсутствующая или испорченная корзина считается пустой.
func (e *Engine) Load(ctx context.Context, sessionID string) *Cart {
	c := &Cart{engine: e, sessionID: sessionID}

	blob, err := e.store.Get(ctx, sessionID, blobName)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			e.log.Warn("failed to load cart, starting empty",
				slog.String("sessionID", sessionID), slog.Any("error", err))
		}
		return c
	}

	var lines []Line
	if err := json.Unmarshal(blob, &lines); err != nil {
		e.log.Warn("corrupt cart blob, starting empty",
			slog.String("sessionID", sessionID), slog.Any("error", err))
		return c
	}

	c.lines = lines
	return c
}

// Add добавляет товар в корзину. Количество меньше единицы отклоняется.
// При update=false количество прибавляется к уже лежащему в корзине,
// при update=true — заменяет его. Цена фиксируется из каталога только
// при создании новой строки. Изменённая корзина сохраняется в сессию.
func (c *Cart) Add(ctx context.Context, product *models.Product, quantity int, update bool) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	found := false
	for i := range c.lines {
		if c.lines[i].ProductID == product.ID {
			if update {
				c.lines[i].Quantity = quantity
			} else {
				c.lines[i].Quantity += quantity
			}
			found = true
			break
		}
	}
	if !found {
		c.lines = append(c.lines, Line{
			ProductID: product.ID,
			Quantity:  quantity,
			Price:     product.Price,
		})
	}

	return c.persist(ctx)
}

// Remove удаляет строку товара. Отсутствие строки — не ошибка.
func (c *Cart) Remove(ctx context.Context, productID int64) error {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return c.persist(ctx)
		}
	}
	return nil
}

// Clear опустошает корзину и сохраняет пустое состояние.
func (c *Cart) Clear(ctx context.Context) error {
	c.lines = nil
	return c.persist(ctx)
}

// Items возвращает строки корзины в порядке добавления, обогащённые
// актуальной карточкой товара и подытогом цена × количество.
// Подытог всегда считается от цены, зафиксированной при добавлении.
func (c *Cart) Items(ctx context.Context) []Item {
	items := make([]Item, 0, len(c.lines))
	for _, line := range c.lines {
		item := Item{
			Line:     line,
			Subtotal: line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		}

		product, err := c.engine.products.GetProductByID(ctx, line.ProductID)
		if err != nil {
			item.Unavailable = true
			c.engine.log.Warn("cart line references unavailable product",
				slog.Int64("productID", line.ProductID), slog.Any("error", err))
		} else {
			item.Product = product
		}
		items = append(items, item)
	}
	return items
}

// TotalPrice — сумма подытогов всех строк; для пустой корзины — ноль.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Len — суммарное количество единиц товара (не число строк), для бейджа в шапке.
func (c *Cart) Len() int {
	n := 0
	for _, line := range c.lines {
		n += line.Quantity
	}
	return n
}

// Lines возвращает копию строк корзины в порядке добавления.
func (c *Cart) Lines() []Line {
	lines := make([]Line, len(c.lines))
	copy(lines, c.lines)
	return lines
}

func (c *Cart) persist(ctx context.Context) error {
	blob, err := json.Marshal(c.lines)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	if err := c.engine.store.Set(ctx, c.sessionID, blobName, blob); err != nil {
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}
