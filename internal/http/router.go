package http

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the customer ordering surface.
func Routes(cart *CartHandler, checkout *CheckoutHandler) chi.Router {
	r := chi.NewRouter()
	r.Route("/carts/{cartKey}", func(r chi.Router) {
		r.Get("/", cart.GetCart)
		r.Delete("/", cart.ClearCart)
		r.Post("/context", cart.SetContext)
		r.Put("/table", cart.UpdateTable)
		r.Post("/items", cart.AddItem)
		r.Patch("/items/{itemID}", cart.UpdateItem)
		r.Delete("/items/{itemID}", cart.RemoveItem)
		r.Post("/customer", cart.SetCustomer)
		r.Get("/validation", cart.Validate)
		r.Post("/checkout", checkout.Checkout)
	})
	return r
}
