// Package storefront is the client side of the marketplace: the session the
// user is signed in with, the moderation mirror that tracks product states,
// the cart, and the catalog views built from backend listings.
//
// The session is always passed explicitly. Components never read a "current
// user" on their own, so every authorization decision is a function of the
// arguments it was given.
package storefront
