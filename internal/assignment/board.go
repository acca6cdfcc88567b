package assignment

import (
	"sync"

	"github.com/senyabanana/assignment-desk/internal/models"
)

// Board хранит подтвержденный сервером список предложений отдельно от
// оптимистичных изменений, ожидающих ответа бэкенда.
type Board struct {
	mu        sync.RWMutex
	confirmed []models.Bid
	pending   map[string]models.BidState
}

// NewBoard создает доску с подтвержденным списком предложений.
func NewBoard(bids []models.Bid) *Board {
	return &Board{
		confirmed: append([]models.Bid(nil), bids...),
		pending:   make(map[string]models.BidState),
	}
}

// Replace заменяет подтвержденный список ответом сервера. Оптимистичные
// изменения по предложениям, которые еще в работе, сохраняются.
func (b *Board) Replace(bids []models.Bid) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmed = append([]models.Bid(nil), bids...)
}

// Confirmed возвращает копию подтвержденного списка.
func (b *Board) Confirmed() []models.Bid {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Bid(nil), b.confirmed...)
}

// ConfirmedBid возвращает подтвержденное состояние предложения.
func (b *Board) ConfirmedBid(bidID string) (models.Bid, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return models.FindBid(b.confirmed, bidID)
}

// View возвращает список для показа: подтвержденный с наложенными
// оптимистичными состояниями.
func (b *Board) View() []models.Bid {
	b.mu.RLock()
	defer b.mu.RUnlock()
	view := make([]models.Bid, len(b.confirmed))
	for i, bid := range b.confirmed {
		if state, ok := b.pending[bid.ID]; ok {
			bid.State = state
		}
		view[i] = bid
	}
	return view
}

// Apply показывает предложение в новом состоянии до ответа сервера.
// Возвращенная функция откатывает изменение; повторный вызов безопасен.
func (b *Board) Apply(bidID string, state models.BidState) (rollback func()) {
	b.mu.Lock()
	b.pending[bidID] = state
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.Settle(bidID) })
	}
}

// Confirm записывает подтвержденное состояние одного предложения, когда
// полный список перезапросить не удалось.
func (b *Board) Confirm(bidID string, state models.BidState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.confirmed {
		if b.confirmed[i].ID == bidID {
			b.confirmed[i].State = state
		}
	}
	delete(b.pending, bidID)
}

// Settle снимает оптимистичное состояние предложения.
func (b *Board) Settle(bidID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, bidID)
}
