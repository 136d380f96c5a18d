package main

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/toyz/nem/pkg/nem"
	"github.com/toyz/nem/pkg/nem/metrics"
	"github.com/toyz/nem/pkg/nem/session"
)

// Character is one entry of a RestModule data set
type Character struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank string `json:"rank,omitempty"`
	Home string `json:"home"`
}

var starWars = []Character{
	{ID: "luke-skywalker", Name: "Luke Skywalker", Home: "Tatooine"},
	{ID: "han-solo", Name: "Han Solo", Home: "-"},
}

var starTrek = []Character{
	{ID: "picard", Rank: "Captain", Name: "Jean Luc Picard", Home: "Earth"},
	{ID: "worf", Rank: "Commander", Name: "Worf", Home: "Qo'noS"},
}

// RestData is the data set a RestModule import serves
var RestData = nem.NewToken("RestData")

type RootModule struct{}

type RestModule struct{}

type RestController struct {
	Data []Character `inject:"RestData"`
}

func (c *RestController) Index() []Character {
	return c.Data
}

func (c *RestController) One(id string) any {
	for i := range c.Data {
		if c.Data[i].ID == id {
			return &c.Data[i]
		}
	}
	return nil
}

type SessionController struct{}

func (c *SessionController) Index(sess nem.SessionData) map[string]any {
	count := 0
	if v, ok := sess.Get("callCount"); ok {
		count = v.(int) + 1
	}
	sess.Set("callCount", count)
	return map[string]any{
		"title":     "session",
		"sessionId": sess.ID(),
		"callCount": count,
	}
}

type EventsController struct{}

// Stream emits a counter every interval starting after the Last-Event-ID
// the client reconnects with. Every fifth tick fails the stream.
func (c *EventsController) Stream(ctx context.Context, offset int) <-chan nem.Event {
	events := make(chan nem.Event)
	go func() {
		defer close(events)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for counter := 0; ; counter++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			ev := nem.Event{ID: fmt.Sprint(counter + offset), Event: "even", Data: map[string]int{"counter": counter + offset}}
			if counter%2 == 1 {
				ev.Event = "odd"
			}
			if counter > 0 && counter%5 == 0 {
				ev.Err = fmt.Errorf("multiple of 5 and not 0")
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Err != nil {
				return
			}
		}
	}()
	return events
}

// declare registers the demo modules and controllers in store and returns
// the root module type
func declare(store *nem.Store, m *metrics.Metrics, sessions session.Options, views []string) (reflect.Type, error) {
	restController := nem.TypeOf[RestController]()
	store.JSONController(restController)
	if err := store.Annotate(restController, "Index", `@Get("/")`); err != nil {
		return nil, err
	}
	if err := store.Annotate(restController, "One", `
		@Get("/:id")
		@OnUndefined(404)
		@Param("id", required=true)
	`); err != nil {
		return nil, err
	}

	sessionController := nem.TypeOf[SessionController]()
	store.Controller(sessionController)
	store.Declare(sessionController, "Index", nem.Get("/"), nem.View("index"), nem.Session())

	eventsController := nem.TypeOf[EventsController]()
	store.Controller(eventsController)
	store.Declare(eventsController, "Stream",
		nem.Get("/"),
		nem.SSE(5*time.Second),
		nem.HeaderParam("Last-Event-ID", nem.As("int")),
	)

	store.Module(nem.TypeOf[RestModule](), nem.ModuleOptions{
		Controllers: []nem.ControllerMount{
			{Path: "/", Type: restController},
		},
	})

	sessionMiddleware, err := session.Middleware(sessions)
	if err != nil {
		return nil, err
	}

	var viewProviders []nem.Provider
	for _, dir := range views {
		viewProviders = append(viewProviders, nem.ViewDirectory(dir))
	}

	root := nem.TypeOf[RootModule]()
	store.Module(root, nem.ModuleOptions{
		Imports: []nem.ModuleImport{
			nem.ImportAt("/star-wars", nem.WithProviders[RestModule](nem.ProvideValue(RestData, starWars))),
			nem.ImportAt("/star-trek", nem.WithProviders[RestModule](nem.ProvideValue(RestData, starTrek))),
		},
		ModuleProviders: viewProviders,
		Middlewares:     []nem.MiddlewareRef{nem.Func(sessionMiddleware)},
		Routers: []nem.RouterMount{
			{Path: "/metrics", Mount: m.Mount},
		},
		Controllers: []nem.ControllerMount{
			{Path: "/session", Type: sessionController},
			{Path: "/events", Type: eventsController},
		},
	})
	return root, nil
}
