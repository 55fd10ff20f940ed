package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"license-service/internal/models"
	"license-service/internal/repository"
)

// ProductHandler handles product CRUD requests
type ProductHandler struct {
	products repository.ProductRepository
}

// NewProductHandler creates a new product handler
func NewProductHandler(products repository.ProductRepository) *ProductHandler {
	return &ProductHandler{products: products}
}

type productRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateProduct creates a product
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product := &models.Product{Name: req.Name, Description: req.Description}
	if err := h.products.Create(c.Request.Context(), product); err != nil {
		ErrorResponse(c, http.StatusUnprocessableEntity, "Failed to create product", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Product created", product)
}

// ListProducts lists all products
// GET /api/v1/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list products", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Products retrieved", products)
}

// GetProduct retrieves one product
// GET /api/v1/products/:productId
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, ok := h.lookup(c)
	if !ok {
		return
	}
	SuccessResponse(c, http.StatusOK, "Product retrieved", product)
}

// UpdateProduct updates a product's attributes
// PUT /api/v1/products/:productId
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	product, ok := h.lookup(c)
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product.Name = req.Name
	product.Description = req.Description
	if err := h.products.Update(c.Request.Context(), product); err != nil {
		ErrorResponse(c, http.StatusUnprocessableEntity, "Failed to update product", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product updated", product)
}

// DeleteProduct deletes a product; its subscriptions and assignments
// cascade away
// DELETE /api/v1/products/:productId
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID", err)
		return
	}

	if err := h.products.Delete(c.Request.Context(), productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFoundResponse(c, []string{"product not found"})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to delete product", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product deleted", nil)
}

func (h *ProductHandler) lookup(c *gin.Context) (*models.Product, bool) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID", err)
		return nil, false
	}

	product, err := h.products.GetByID(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFoundResponse(c, []string{"product not found"})
			return nil, false
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get product", err)
		return nil, false
	}
	return product, true
}
