package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"pinas/config"
	"pinas/explorer"
	"pinas/logging"
	"pinas/service/fs"
	"pinas/service/registry"
	"pinas/websocket"
	explorersvc "pinas/websocket/service/explorer"
	"pinas/websocket/service/heartbeat"
)

type Controller struct {
	cfg      *config.Config
	registry *registry.Registry
	localID  string
	log      zerolog.Logger
}

// New builds the controller and registers the local connection when it is
// enabled.
func New(cfg *config.Config, reg *registry.Registry) (*Controller, error) {
	c := &Controller{
		cfg:      cfg,
		registry: reg,
		log:      logging.For("controller"),
	}

	if cfg.Local.Enabled {
		local, err := reg.AddLocal(cfg.Local.Root)
		if err != nil {
			return nil, err
		}
		c.localID = local.ID
	}
	return c, nil
}

type deviceView struct {
	registry.StorageDevice
	UsedPercent   float64 `json:"used_percent"`
	SizeTotalText string  `json:"size_total_text"`
	SizeFreeText  string  `json:"size_free_text"`
}

type connectionView struct {
	registry.Connection
	StorageDevices []deviceView `json:"storage_devices"`
}

func newConnectionView(conn registry.Connection) connectionView {
	view := connectionView{
		Connection:     conn,
		StorageDevices: make([]deviceView, 0, len(conn.StorageDevices)),
	}
	for _, d := range conn.StorageDevices {
		view.StorageDevices = append(view.StorageDevices, deviceView{
			StorageDevice: d,
			UsedPercent:   d.Quota().UsedPercent(),
			SizeTotalText: explorer.FormatBytes(d.SizeTotal),
			SizeFreeText:  explorer.FormatBytes(d.SizeFree),
		})
	}
	return view
}

func (c *Controller) Connect(ctx *gin.Context) {
	var req registry.ConnectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := c.registry.Connect(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, newConnectionView(*conn))
}

func (c *Controller) ListConnections(ctx *gin.Context) {
	conns := c.registry.List()
	views := make([]connectionView, 0, len(conns))
	for _, conn := range conns {
		views = append(views, newConnectionView(conn))
	}
	ctx.JSON(http.StatusOK, views)
}

func (c *Controller) GetConnection(ctx *gin.Context) {
	conn, err := c.registry.Get(ctx.Param("id"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, newConnectionView(*conn))
}

func (c *Controller) Disconnect(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == c.localID {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "the local connection cannot be closed"})
		return
	}
	if err := c.registry.Disconnect(id); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *Controller) StartExplorer(ctx *gin.Context) {
	c.startExplorer(ctx, ctx.Param("id"), ctx.Param("device"))
}

func (c *Controller) StartLocalExplorer(ctx *gin.Context) {
	conn, err := c.registry.Get(c.localID)
	if err != nil || len(conn.StorageDevices) == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "local connection is not available"})
		return
	}
	c.startExplorer(ctx, conn.ID, conn.StorageDevices[0].ID)
}

// startExplorer upgrades to a websocket session bound to one coordinator
// rooted at the device's mount point. It returns when the session ends.
func (c *Controller) startExplorer(ctx *gin.Context, connID, deviceID string) {
	device, err := c.registry.Device(connID, deviceID)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	log := c.log.With().Str("connection", connID).Str("device", device.MountPoint).Logger()
	coord, err := explorer.NewCoordinator(explorer.Config{
		ConnectionID: connID,
		MountRoot:    device.MountPoint,
		Gateway:      c.registry.Gateway(),
		Destinations: fs.DownloadDirSupplier{Dir: c.cfg.Download.Dir, Conflict: c.cfg.Download.Conflict},
		Quota:        device.Quota(),
		Logger:       log,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	wsServer, err := websocket.NewServer(ctx.Writer, ctx.Request, c.cfg.Server.ConnectionTimeout, log)
	if err != nil {
		// the upgrader already answered the request
		return
	}

	explorerService := explorersvc.NewService(coord, log)
	heartbeatService := heartbeat.NewService()

	wsServer.Register(explorerService)
	wsServer.RegisterPassive(heartbeatService)

	explorerService.Load()
	wsServer.Start()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownConnection), errors.Is(err, registry.ErrUnknownDevice):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
