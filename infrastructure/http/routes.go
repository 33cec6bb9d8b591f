package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lattice/api/auditlog"
	"lattice/api/bookings"
	"lattice/api/contracts"
	"lattice/api/customers"
	"lattice/api/inventory"
	"lattice/api/login"
	"lattice/api/orders"
	"lattice/api/partners"
	"lattice/api/permissions"
	"lattice/api/schedule"
	"lattice/api/settings"
	"lattice/api/shared/response"
	"lattice/api/users"
	"lattice/infrastructure/events"
	"lattice/infrastructure/rbac"
)

// RegisterPublicRoutes registers the routes reachable without a token.
func (s *Server) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		response.Message(w, http.StatusOK, "Hello from the Lattice Data Server!")
	})
	r.Post("/login", login.CreateLoginHandler(s.DB, s.Tokens))
}

// RegisterAPIRoutes registers authenticated routes. A route without an
// Rbac.Add entry only needs a valid token.
func (s *Server) RegisterAPIRoutes(r chi.Router) chi.Router {
	r.Get("/me", login.MeHandler)
	if s.Hub != nil {
		r.Get("/events", s.Hub.ServeSSE)
		r.Handle("/ws", events.NewWebSocketHandler(s.Hub, s.opts.CORSOrigins))
	}

	s.RegisterBookingRoutes(r)
	s.RegisterInventoryRoutes(r)
	s.RegisterPartyRoutes(r)
	s.RegisterOrderRoutes(r)
	s.RegisterAdminRoutes(r)
	return r
}

// RegisterBookingRoutes registers bookings and the weekly schedule.
func (s *Server) RegisterBookingRoutes(r chi.Router) {
	var notify bookings.Notifier = nopNotifier{}
	if s.Hub != nil {
		notify = s.Hub
	}

	s.Rbac.Add(rbac.ViewSchedule, http.MethodGet, "/api/bookings")
	r.Get("/bookings", bookings.ListBookingsHandler(s.DB))
	s.Rbac.Add(rbac.ManageBookings, http.MethodPost, "/api/bookings")
	r.Post("/bookings", bookings.CreateBookingsHandler(s.DB, notify))
	s.Rbac.Add(rbac.ManageBookings, http.MethodPost, "/api/bookings/series")
	r.Post("/bookings/series", bookings.CreateSeriesHandler(s.DB, notify))
	s.Rbac.Add(rbac.AccessDangerZone, http.MethodDelete, "/api/bookings/all")
	r.Delete("/bookings/all", bookings.DeleteAllBookingsHandler(s.DB, s.Audit, notify))
	s.Rbac.Add(rbac.ManageBookings, http.MethodDelete, "/api/bookings/series/{seriesId}")
	r.Delete("/bookings/series/{seriesId}", bookings.DeleteSeriesHandler(s.DB, notify))
	s.Rbac.Add(rbac.ManageBookings, http.MethodPut, "/api/bookings/{id}")
	r.Put("/bookings/{id}", bookings.UpdateBookingHandler(s.DB, notify))
	s.Rbac.Add(rbac.ManageBookings, http.MethodDelete, "/api/bookings/{id}")
	r.Delete("/bookings/{id}", bookings.DeleteBookingHandler(s.DB, notify))

	s.Rbac.Add(rbac.ViewSchedule, http.MethodGet, "/api/schedule/week")
	r.Get("/schedule/week", schedule.WeekHandler(s.DB))
}

// RegisterInventoryRoutes registers inventory CRUD, import/export and labels.
func (s *Server) RegisterInventoryRoutes(r chi.Router) {
	s.Rbac.Add(rbac.ViewInventory, http.MethodGet, "/api/inventory")
	r.Get("/inventory", inventory.ListInventoryHandler(s.DB))
	s.Rbac.Add(rbac.ManageInventory, http.MethodPost, "/api/inventory")
	r.Post("/inventory", inventory.CreateInventoryHandler(s.DB))
	s.Rbac.Add(rbac.ManageInventory, http.MethodPost, "/api/inventory/bulk")
	r.Post("/inventory/bulk", inventory.BulkInventoryHandler(s.DB, s.Audit))
	s.Rbac.Add(rbac.ManageInventory, http.MethodPost, "/api/inventory/import")
	r.Post("/inventory/import", inventory.ImportInventoryHandler(s.DB, s.Audit))
	s.Rbac.Add(rbac.ViewInventory, http.MethodGet, "/api/inventory/export.csv")
	r.Get("/inventory/export.csv", inventory.ExportInventoryCSVHandler(s.DB))
	s.Rbac.Add(rbac.AccessDangerZone, http.MethodDelete, "/api/inventory/all")
	r.Delete("/inventory/all", inventory.DeleteAllInventoryHandler(s.DB, s.Audit))
	s.Rbac.Add(rbac.ViewInventory, http.MethodGet, "/api/inventory/{id}/label")
	r.Get("/inventory/{id}/label", inventory.InventoryLabelHandler(s.DB))
	s.Rbac.Add(rbac.ManageInventory, http.MethodPut, "/api/inventory/{id}")
	r.Put("/inventory/{id}", inventory.UpdateInventoryHandler(s.DB))
	s.Rbac.Add(rbac.ManageInventory, http.MethodDelete, "/api/inventory/{id}")
	r.Delete("/inventory/{id}", inventory.DeleteInventoryHandler(s.DB))
}

// RegisterPartyRoutes registers customers, contracts, suppliers and hauliers.
func (s *Server) RegisterPartyRoutes(r chi.Router) {
	s.Rbac.Add(rbac.ViewCustomers, http.MethodGet, "/api/customers")
	r.Get("/customers", customers.ListCustomersHandler(s.DB))
	s.Rbac.Add(rbac.ManageCustomers, http.MethodPost, "/api/customers")
	r.Post("/customers", customers.CreateCustomerHandler(s.DB))
	s.Rbac.Add(rbac.ManageCustomers, http.MethodPut, "/api/customers/{id}")
	r.Put("/customers/{id}", customers.UpdateCustomerHandler(s.DB, s.Audit))
	s.Rbac.Add(rbac.ManageCustomers, http.MethodDelete, "/api/customers/{id}")
	r.Delete("/customers/{id}", customers.DeleteCustomerHandler(s.DB, s.Audit))
	s.Rbac.Add(rbac.ViewCustomers, http.MethodGet, "/api/customers/{id}/suppliers")
	r.Get("/customers/{id}/suppliers", customers.ListCustomerSuppliersHandler(s.DB))
	s.Rbac.Add(rbac.ManageCustomers, http.MethodPut, "/api/customers/{id}/suppliers")
	r.Put("/customers/{id}/suppliers", customers.ReplaceCustomerSuppliersHandler(s.DB))
	s.Rbac.Add(rbac.ViewCustomers, http.MethodGet, "/api/customers/{id}/hauliers")
	r.Get("/customers/{id}/hauliers", customers.ListCustomerHauliersHandler(s.DB))
	s.Rbac.Add(rbac.ManageCustomers, http.MethodPut, "/api/customers/{id}/hauliers")
	r.Put("/customers/{id}/hauliers", customers.ReplaceCustomerHauliersHandler(s.DB))
	s.Rbac.Add(rbac.ViewCustomers, http.MethodGet, "/api/customers/{id}/contracts")
	r.Get("/customers/{id}/contracts", customers.ListCustomerContractsHandler(s.DB))

	s.Rbac.Add(rbac.ViewCustomers, http.MethodGet, "/api/contracts")
	r.Get("/contracts", contracts.ListContractsHandler(s.DB))
	s.Rbac.Add(rbac.ManageCustomers, http.MethodPost, "/api/contracts")
	r.Post("/contracts", contracts.CreateContractHandler(s.DB))
	s.Rbac.Add(rbac.ManageCustomers, http.MethodPut, "/api/contracts/{id}")
	r.Put("/contracts/{id}", contracts.UpdateContractHandler(s.DB))
	s.Rbac.Add(rbac.ManageCustomers, http.MethodDelete, "/api/contracts/{id}")
	r.Delete("/contracts/{id}", contracts.DeleteContractHandler(s.DB))

	s.Rbac.Add(rbac.ViewCustomers, http.MethodGet, "/api/suppliers")
	r.Get("/suppliers", partners.ListHandler(partners.Suppliers, s.DB))
	s.Rbac.Add(rbac.ManageSuppliers, http.MethodPost, "/api/suppliers")
	r.Post("/suppliers", partners.CreateHandler(partners.Suppliers, s.DB))
	s.Rbac.Add(rbac.AccessDangerZone, http.MethodDelete, "/api/suppliers/all")
	r.Delete("/suppliers/all", partners.DeleteAllHandler(partners.Suppliers, s.DB, s.Audit))
	s.Rbac.Add(rbac.ManageSuppliers, http.MethodPut, "/api/suppliers/{id}")
	r.Put("/suppliers/{id}", partners.UpdateHandler(partners.Suppliers, s.DB))
	s.Rbac.Add(rbac.ManageSuppliers, http.MethodDelete, "/api/suppliers/{id}")
	r.Delete("/suppliers/{id}", partners.DeleteHandler(partners.Suppliers, s.DB))

	s.Rbac.Add(rbac.ViewCustomers, http.MethodGet, "/api/hauliers")
	r.Get("/hauliers", partners.ListHandler(partners.Hauliers, s.DB))
	s.Rbac.Add(rbac.ManageHauliers, http.MethodPost, "/api/hauliers")
	r.Post("/hauliers", partners.CreateHandler(partners.Hauliers, s.DB))
	s.Rbac.Add(rbac.AccessDangerZone, http.MethodDelete, "/api/hauliers/all")
	r.Delete("/hauliers/all", partners.DeleteAllHandler(partners.Hauliers, s.DB, s.Audit))
	s.Rbac.Add(rbac.ManageHauliers, http.MethodPut, "/api/hauliers/{id}")
	r.Put("/hauliers/{id}", partners.UpdateHandler(partners.Hauliers, s.DB))
	s.Rbac.Add(rbac.ManageHauliers, http.MethodDelete, "/api/hauliers/{id}")
	r.Delete("/hauliers/{id}", partners.DeleteHandler(partners.Hauliers, s.DB))
}

// RegisterOrderRoutes registers orders with their line items.
func (s *Server) RegisterOrderRoutes(r chi.Router) {
	s.Rbac.Add(rbac.ViewOrders, http.MethodGet, "/api/orders")
	r.Get("/orders", orders.ListOrdersHandler(s.DB))
	s.Rbac.Add(rbac.ManageOrders, http.MethodPost, "/api/orders")
	r.Post("/orders", orders.CreateOrderHandler(s.DB))
	s.Rbac.Add(rbac.AccessDangerZone, http.MethodDelete, "/api/orders/all")
	r.Delete("/orders/all", orders.DeleteAllOrdersHandler(s.DB, s.Audit))
	s.Rbac.Add(rbac.ManageOrders, http.MethodPut, "/api/orders/{id}")
	r.Put("/orders/{id}", orders.UpdateOrderHandler(s.DB))
	s.Rbac.Add(rbac.ManageOrders, http.MethodDelete, "/api/orders/{id}")
	r.Delete("/orders/{id}", orders.DeleteOrderHandler(s.DB))
}

// RegisterAdminRoutes registers users, roles, permissions, settings and the audit trail.
func (s *Server) RegisterAdminRoutes(r chi.Router) {
	s.Rbac.Add(rbac.ManageUsers, http.MethodGet, "/api/users")
	r.Get("/users", users.ListUsersHandler(s.DB))
	s.Rbac.Add(rbac.ManageUsers, http.MethodPost, "/api/users")
	r.Post("/users", users.CreateUserHandler(s.DB, s.opts.PasswordPolicy))
	s.Rbac.Add(rbac.ManageUsers, http.MethodPut, "/api/users/{id}")
	r.Put("/users/{id}", users.UpdateUserHandler(s.DB))
	s.Rbac.Add(rbac.ManageUsers, http.MethodDelete, "/api/users/{id}")
	r.Delete("/users/{id}", users.DeleteUserHandler(s.DB, s.Audit))
	// Self-service; the handler checks manage-users for anyone else.
	r.Put("/users/{id}/password", users.SetPasswordHandler(s.DB, s.Audit, s.Rbac, s.opts.PasswordPolicy))

	r.Get("/roles", permissions.ListRolesHandler(s.DB))
	s.Rbac.Add(rbac.ManageRoles, http.MethodPost, "/api/roles")
	r.Post("/roles", permissions.CreateRoleHandler(s.DB, s.Rbac))
	r.Get("/permissions", permissions.GetPermissionsHandler(s.Rbac))
	s.Rbac.Add(rbac.ManageRoles, http.MethodPut, "/api/permissions")
	r.Put("/permissions", permissions.ReplacePermissionsHandler(s.DB, s.Rbac, s.Audit))
	s.Rbac.Add(rbac.ManageRoles, http.MethodGet, "/api/permissions/catalog")
	r.Get("/permissions/catalog", permissions.CatalogHandler)

	r.Get("/settings/{key}", settings.GetSettingHandler(s.DB))
	s.Rbac.Add(rbac.ManageSettings, http.MethodPut, "/api/settings/{key}")
	s.Rbac.Add(rbac.ManageScheduleSettings, http.MethodPut, "/api/settings/schedule")
	r.Put("/settings/{key}", settings.SaveSettingHandler(s.DB))

	s.Rbac.Add(rbac.ManageUsers, http.MethodGet, "/api/audit")
	r.Get("/audit", auditlog.ListAuditLogHandler(s.DB, s.Audit))
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(string) {}
