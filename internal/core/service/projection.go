package service

import "github.com/glossly/dealdesk/internal/core/domain"

// Queue is the dealer's live view: four disjoint buckets plus the count of
// pending orders the dealer has not attended to this session.
type Queue struct {
	Pending     []domain.Order
	Active      []domain.Order
	Completed   []domain.Order
	Rejected    []domain.Order
	UnseenCount int
}

// BuildQueue projects an order collection into buckets. Pure function:
// relative order inside each bucket follows the collection, which only
// changes positions at insert time.
func BuildQueue(orders []domain.Order, unseen map[string]struct{}) Queue {
	var q Queue
	for _, o := range orders {
		switch o.Status {
		case domain.StatusPending, domain.StatusCountered:
			q.Pending = append(q.Pending, o)
		case domain.StatusAccepted, domain.StatusPaid, domain.StatusInProgress:
			q.Active = append(q.Active, o)
		case domain.StatusCompleted:
			q.Completed = append(q.Completed, o)
		case domain.StatusRejected:
			q.Rejected = append(q.Rejected, o)
		}
	}
	q.UnseenCount = len(unseen)
	return q
}
