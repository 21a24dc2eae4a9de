package controllers

import (
	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/services"
	"github.com/plantnet/plantnet-server/pkg/ctx"
)

type UserController struct {
	users *services.UserService
	stats *services.StatsService
}

func NewUserController(users *services.UserService, stats *services.StatsService) *UserController {
	return &UserController{users: users, stats: stats}
}

// Save creates or updates the profile for the {email} path segment.
func (u *UserController) Save(c *ctx.Context) {
	var in models.UserProfile
	if !c.BindJSON(&in) {
		return
	}
	user, err := u.users.Save(c.Context(), c.Param("email"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(user)
}

func (u *UserController) UpdateRole(c *ctx.Context) {
	var in models.RoleChange
	if !c.BindJSON(&in) {
		return
	}
	user, err := u.users.ChangeRole(c.Context(), c.Param("email"), in.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(user)
}

func (u *UserController) Index(c *ctx.Context) {
	users, err := u.users.All(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(users)
}

func (u *UserController) Show(c *ctx.Context) {
	user, err := u.users.Find(c.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(user)
}

func (u *UserController) AdminStat(c *ctx.Context) {
	stat, err := u.stats.AdminStat(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(stat)
}
