package store

// Event bus topics published by the stores. Subscribers receive no payload;
// they re-read the store's snapshot accessors, which keeps re-render
// scheduling a subscriber concern.
const (
	TopicClientsChanged  = "store.clients.changed"
	TopicCarsChanged     = "store.cars.changed"
	TopicServicesChanged = "store.services.changed"
	TopicOrdersChanged   = "store.orders.changed"
	TopicProfilesChanged = "store.profiles.changed"
	TopicSessionChanged  = "store.session.changed"
)
