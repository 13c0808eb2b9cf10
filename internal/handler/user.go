package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/xenking/mini-store/internal/domain/user"
)

// addressPayload is a saved address on the wire, shared by requests and
// responses.
type addressPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

func toAddressPayload(a user.Address) addressPayload {
	return addressPayload(a)
}

// userResponse is the wire shape of a profile.
type userResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Role         string           `json:"role"`
	IsBlocked    bool             `json:"isBlocked"`
	Addresses    []addressPayload `json:"addresses"`
	Wishlist     []string         `json:"wishlist"`
	ProfileImage string           `json:"profileImage,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func toUserResponse(u *user.User) userResponse {
	addresses := make([]addressPayload, len(u.Addresses))
	for i, a := range u.Addresses {
		addresses[i] = toAddressPayload(a)
	}
	wishlist := u.Wishlist
	if wishlist == nil {
		wishlist = []string{}
	}
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         string(u.Role),
		IsBlocked:    u.IsBlocked,
		Addresses:    addresses,
		Wishlist:     wishlist,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Profile(r.Context(), mustClaims(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// updateProfileRequest is a partial profile patch.
type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), mustClaims(r).UserID, user.ProfilePatch{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	products, err := h.users.Wishlist(r.Context(), mustClaims(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// wishlistRequest adds one product to the wishlist.
type wishlistRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request) {
	var req wishlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "productId is required")
		return
	}

	if err := h.users.AddToWishlist(r.Context(), mustClaims(r).UserID, req.ProductID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.users.RemoveFromWishlist(r.Context(), mustClaims(r).UserID, r.PathValue("productId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.users.Addresses(r.Context(), mustClaims(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]addressPayload, len(addresses))
	for i, a := range addresses {
		out[i] = toAddressPayload(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addAddress(w http.ResponseWriter, r *http.Request) {
	var req addressPayload
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.AddAddress(r.Context(), mustClaims(r).UserID, user.Address(req)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeAddress(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid address index")
		return
	}

	if err := h.users.RemoveAddress(r.Context(), mustClaims(r).UserID, index); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userPageResponse is one page of an admin user listing.
type userPageResponse struct {
	Users      []userResponse `json:"users"`
	Page       int64          `json:"page"`
	TotalPages int64          `json:"totalPages"`
	TotalUsers int64          `json:"totalUsers"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page := int64(1)
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			writeErrorMessage(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = parsed
	}

	result, err := h.users.List(r.Context(), mustClaims(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	users := make([]userResponse, len(result.Users))
	for i := range result.Users {
		users[i] = toUserResponse(&result.Users[i])
	}
	writeJSON(w, http.StatusOK, userPageResponse{
		Users:      users,
		Page:       result.Page,
		TotalPages: result.TotalPages,
		TotalUsers: result.TotalUsers,
	})
}

// setBlockedRequest toggles an account's block flag.
type setBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

func (h *Handler) setUserBlocked(w http.ResponseWriter, r *http.Request) {
	var req setBlockedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.SetBlocked(r.Context(), mustClaims(r), r.PathValue("id"), req.Blocked); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
