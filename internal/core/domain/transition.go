package domain

type edge struct {
	from Status
	to   Status
}

// transitions is the single source of truth for the negotiation state
// machine. An edge absent from this table is illegal for every actor.
//
//	pending     -> countered   (dealer)
//	pending     -> accepted    (dealer)
//	pending     -> rejected    (dealer)
//	countered   -> accepted    (client)
//	countered   -> rejected    (client or dealer withdrawing)
//	accepted    -> paid        (client)
//	accepted    -> in_progress (dealer, pay-later)
//	paid        -> in_progress (dealer)
//	in_progress -> completed   (dealer)
//
// rejected and completed are terminal.
var transitions = map[edge]map[Actor]bool{
	{StatusPending, StatusCountered}:    {ActorDealer: true},
	{StatusPending, StatusAccepted}:     {ActorDealer: true},
	{StatusPending, StatusRejected}:     {ActorDealer: true},
	{StatusCountered, StatusAccepted}:   {ActorClient: true},
	{StatusCountered, StatusRejected}:   {ActorClient: true, ActorDealer: true},
	{StatusAccepted, StatusPaid}:        {ActorClient: true},
	{StatusAccepted, StatusInProgress}:  {ActorDealer: true},
	{StatusPaid, StatusInProgress}:      {ActorDealer: true},
	{StatusInProgress, StatusCompleted}: {ActorDealer: true},
}

// IsAllowedTransition reports whether actor may move an order from one
// status to another. Pure lookup, no side effects.
func IsAllowedTransition(from, to Status, actor Actor) bool {
	return transitions[edge{from, to}][actor]
}
