package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"knightcam.github.io/camlink"
	"knightcam.github.io/camlink/client"
	"knightcam.github.io/camlink/envelope"
	"knightcam.github.io/camlink/xlog"
)

type handler struct{}

func (h *handler) OnState(change client.StateChange) {
	if change.Attempt > 0 {
		xlog.Info("reconnecting", xlog.Attempt(change.Attempt))
		return
	}
	xlog.Info("state change", xlog.Str("from", change.Old.String()), xlog.State(change.New.String()))
}

func (h *handler) OnNotification(n *envelope.Notification) {
	xlog.Info("notification", xlog.Event(n.Event), xlog.Str("data", string(n.Data)))
}

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "camera server address (host:port)")
	version := flag.String("client-version", "1.0.0", "client version reported to the server")
	model := flag.String("model", "", "device model to register after connecting")
	action := flag.String("action", "", "one action to send once connected, e.g. capture")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		xlog.SetDefault(xlog.NewText(xlog.LevelDebug))
	}

	c := camlink.New(*addr,
		client.WithClientVersion(*version),
		client.WithHandler(&handler{}),
		client.WithLogger(xlog.Default()),
	)
	defer c.Close()

	ctx := context.Background()
	if xe := c.Connect(ctx); xe != nil {
		xlog.Error("connect failed", xlog.Err(xe))
		os.Exit(1)
	}
	if info := c.ServerInfo(); info != nil {
		xlog.Info("connected", xlog.Str("serverVersion", info.ServerVersion))
	}
	if *model != "" {
		if xe := c.RegisterDevice(ctx, *model); xe != nil {
			xlog.Error("register device failed", xlog.Err(xe))
			os.Exit(1)
		}
		xlog.Info("device registered", xlog.Str("deviceModel", *model))
	}
	if *action != "" {
		resp, xe := c.SendRequest(ctx, *action, nil)
		if xe != nil {
			xlog.Error("request failed", xlog.Action(*action), xlog.Err(xe))
			os.Exit(1)
		}
		if !resp.Success {
			xlog.Error("request rejected", xlog.Action(*action), xlog.Str("error", resp.Error))
			os.Exit(1)
		}
		if len(resp.Data) > 0 {
			fmt.Println(string(resp.Data))
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	c.Disconnect()
}
