package api

import "net/http"

// ContainersHandler lists the purchasable containers.
type ContainersHandler struct {
	svc Service
}

// NewContainersHandler creates a new containers handler.
func NewContainersHandler(svc Service) *ContainersHandler {
	return &ContainersHandler{svc: svc}
}

type containerView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

// HandleList handles GET /containers. Drop tables stay server-side;
// only the purchasable surface is exposed.
func (h *ContainersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	containers := h.svc.Containers()
	views := make([]containerView, 0, len(containers))
	for _, c := range containers {
		views = append(views, containerView{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Price:       c.Price,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]containerView{"containers": views})
}
