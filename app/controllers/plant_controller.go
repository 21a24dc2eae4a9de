package controllers

import (
	"net/http"

	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/services"
	"github.com/plantnet/plantnet-server/pkg/ctx"
)

type PlantController struct {
	plants *services.PlantService
	images *services.ImageService
}

func NewPlantController(plants *services.PlantService, images *services.ImageService) *PlantController {
	return &PlantController{plants: plants, images: images}
}

func (p *PlantController) Store(c *ctx.Context) {
	var in models.Plant
	if !c.BindJSON(&in) {
		return
	}
	if err := p.plants.Create(c.Context(), &in); err != nil {
		fail(c, err)
		return
	}
	c.Created(map[string]interface{}{"acknowledged": true, "insertedId": in.ID.Hex()})
}

func (p *PlantController) Index(c *ctx.Context) {
	plants, err := p.plants.List(c.Context(), c.Query("category"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(plants)
}

func (p *PlantController) Show(c *ctx.Context) {
	plant, err := p.plants.Find(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(plant)
}

// Inventory lists a seller's own plants.
func (p *PlantController) Inventory(c *ctx.Context) {
	plants, err := p.plants.BySeller(c.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(plants)
}

func (p *PlantController) Update(c *ctx.Context) {
	var in models.PlantUpdate
	if !c.BindJSON(&in) {
		return
	}
	plant, err := p.plants.Update(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(plant)
}

func (p *PlantController) Destroy(c *ctx.Context) {
	n, err := p.plants.Delete(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]interface{}{"acknowledged": true, "deletedCount": n})
}

// Upload accepts a multipart "image" field and returns the stored URL.
func (p *PlantController) Upload(c *ctx.Context) {
	if p.images == nil {
		c.Error(http.StatusServiceUnavailable, "Image storage is not configured")
		return
	}
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, services.MaxImageSize+1<<10)
	file, header, err := c.R.FormFile("image")
	if err != nil {
		c.Error(http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	url, err := p.images.Upload(c.Context(), header.Header.Get("Content-Type"), file)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(map[string]string{"url": url})
}
