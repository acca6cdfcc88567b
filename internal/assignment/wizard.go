package assignment

import (
	"github.com/senyabanana/assignment-desk/internal/models"
)

// PremiumShortlistLimit - мягкое ограничение шорт-листа premium-назначения.
// Окончательную проверку выполняет бэкенд.
const PremiumShortlistLimit = 8

// State - данные, по которым проверяются условия перехода между этапами.
type State struct {
	Project models.Project
	Bids    []models.Bid
}

type stepRule struct {
	key      models.StepKey
	optional bool
	ready    func(State) (bool, string)
}

func hasBids(s State) (bool, string) {
	return len(s.Bids) > 0, "there are no bids on this project yet"
}

func hasShortlist(s State) (bool, string) {
	return models.CountInState(s.Bids, models.UnderReviewBid) > 0, "shortlist at least one bid before continuing"
}

func hasAcceptedInvitation(s State) (bool, string) {
	if s.Project.IsAssigned() || models.CountInState(s.Bids, models.AcceptedBid) > 0 {
		return true, ""
	}
	return false, "waiting for the freelancer to accept the invitation"
}

func always(State) (bool, string) { return true, "" }

func never(State) (bool, string) { return false, "this is the last step" }

var tierSteps = map[models.Tier][]stepRule{
	models.QuickTier: {
		{key: models.ReviewStep, ready: hasBids},
		{key: models.InvitationStep, ready: hasAcceptedInvitation},
		{key: models.ConfirmedStep, ready: never},
	},
	models.StandardTier: {
		{key: models.ReviewStep, ready: hasBids},
		{key: models.ShortlistStep, ready: hasShortlist},
		{key: models.FinalStep, ready: never},
	},
	models.PremiumTier: {
		{key: models.ReviewStep, ready: hasBids},
		{key: models.ShortlistStep, ready: hasShortlist},
		{key: models.InterviewStep, optional: true, ready: always},
		{key: models.FinalStep, ready: never},
	},
}

// StepsFor возвращает упорядоченный список этапов типа назначения.
func StepsFor(t models.Tier) []models.StepKey {
	rules := tierSteps[t]
	keys := make([]models.StepKey, 0, len(rules))
	for _, r := range rules {
		keys = append(keys, r.key)
	}
	return keys
}

// CanAdvance проверяет условие выхода с этапа. Для неизвестного этапа
// возвращает false.
func CanAdvance(t models.Tier, step models.StepKey, s State) (bool, string) {
	for _, r := range tierSteps[t] {
		if r.key == step {
			return r.ready(s)
		}
	}
	return false, "unknown step"
}

// Wizard - пошаговый мастер назначения одного типа.
// Не потокобезопасен, синхронизация на стороне вызывающего.
type Wizard struct {
	tier        models.Tier
	rules       []stepRule
	current     int
	assignedBid *models.Bid
	interviewed []string
}

// NewWizard создает мастер на первом этапе.
func NewWizard(t models.Tier) *Wizard {
	rules, ok := tierSteps[t]
	if !ok {
		t = models.QuickTier
		rules = tierSteps[t]
	}
	return &Wizard{tier: t, rules: rules}
}

// RestoreWizard восстанавливает мастер из сохраненной сессии.
func RestoreWizard(session models.AssignmentSession) *Wizard {
	w := NewWizard(session.Tier)
	w.current = clamp(session.CurrentStep, 0, len(w.rules)-1)
	w.interviewed = append([]string(nil), session.InterviewedBidIDs...)
	return w
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (w *Wizard) Tier() models.Tier { return w.tier }

func (w *Wizard) Current() int { return w.current }

func (w *Wizard) CurrentKey() models.StepKey { return w.rules[w.current].key }

func (w *Wizard) Steps() []models.StepKey { return StepsFor(w.tier) }

func (w *Wizard) IsTerminal() bool { return w.current == len(w.rules)-1 }

// AssignedBid возвращает предложение закрепленного исполнителя, если оно известно.
func (w *Wizard) AssignedBid() *models.Bid { return w.assignedBid }

// Interviewed возвращает ID предложений, которым отправлены запросы на интервью.
func (w *Wizard) Interviewed() []string { return append([]string(nil), w.interviewed...) }

// ShortlistLimit возвращает мягкое ограничение шорт-листа, 0 - без ограничения.
func (w *Wizard) ShortlistLimit() int {
	if w.tier == models.PremiumTier {
		return PremiumShortlistLimit
	}
	return 0
}

// HasStep сообщает, есть ли у мастера этап с таким ключом.
func (w *Wizard) HasStep(key models.StepKey) bool {
	for _, r := range w.rules {
		if r.key == key {
			return true
		}
	}
	return false
}

// Next переходит на следующий этап, если выполнено условие текущего.
// При отказе текущий этап не меняется.
func (w *Wizard) Next(s State) error {
	if w.IsTerminal() {
		return ErrTerminalStep
	}
	rule := w.rules[w.current]
	if ok, warning := rule.ready(s); !ok {
		return &StepError{Step: rule.key, Warning: warning}
	}
	w.current++
	return nil
}

// Previous возвращает на предыдущий этап без проверок.
func (w *Wizard) Previous() {
	if w.current > 0 {
		w.current--
	}
}

// Skip пропускает необязательный этап: либо текущий, либо следующий за ним.
func (w *Wizard) Skip(s State) error {
	if w.rules[w.current].optional {
		w.current++
		return nil
	}
	next := w.current + 1
	if next >= len(w.rules)-1 || !w.rules[next].optional {
		return ErrCannotSkip
	}
	rule := w.rules[w.current]
	if ok, warning := rule.ready(s); !ok {
		return &StepError{Step: rule.key, Warning: warning}
	}
	w.current = next + 1
	return nil
}

// AdvanceTo переводит мастер на указанный этап, если он идет позже текущего.
func (w *Wizard) AdvanceTo(key models.StepKey) {
	for i, r := range w.rules {
		if r.key == key && i > w.current {
			w.current = i
			return
		}
	}
}

// MarkInterviewed запоминает предложения, приглашенные на интервью.
func (w *Wizard) MarkInterviewed(bidIDs []string) {
	seen := make(map[string]bool, len(w.interviewed))
	for _, id := range w.interviewed {
		seen[id] = true
	}
	for _, id := range bidIDs {
		if !seen[id] {
			seen[id] = true
			w.interviewed = append(w.interviewed, id)
		}
	}
}

// ObserveAssignment обрабатывает событие о закреплении исполнителя: находит
// предложение этого фрилансера и принудительно переводит мастер на последний
// этап, независимо от текущего. Возвращает true, если мастер изменился.
func (w *Wizard) ObserveAssignment(assigned []models.AssignedFreelancer, bids []models.Bid) bool {
	if len(assigned) == 0 {
		return false
	}

	var match *models.Bid
	for _, af := range assigned {
		for i := range bids {
			if bids[i].Freelancer.ID == af.ID {
				b := bids[i]
				match = &b
				break
			}
		}
		if match != nil {
			break
		}
	}

	last := len(w.rules) - 1
	changed := w.current != last
	if match != nil && (w.assignedBid == nil || w.assignedBid.ID != match.ID) {
		changed = true
	}
	w.current = last
	if match != nil {
		w.assignedBid = match
	}
	return changed
}

// Snapshot переносит состояние мастера в сессию для сохранения.
func (w *Wizard) Snapshot(session *models.AssignmentSession) {
	session.Tier = w.tier
	session.CurrentStep = w.current
	session.InterviewedBidIDs = w.Interviewed()
	session.AssignedBidID = ""
	if w.assignedBid != nil {
		session.AssignedBidID = w.assignedBid.ID
	}
}
