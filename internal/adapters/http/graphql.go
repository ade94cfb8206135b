package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	poiType := graphql.NewObject(graphql.ObjectConfig{
		Name: "POI",
		Fields: graphql.Fields{
			"id":                    &graphql.Field{Type: graphql.String},
			"slug":                  &graphql.Field{Type: graphql.String},
			"name":                  &graphql.Field{Type: graphql.String},
			"description":           &graphql.Field{Type: graphql.String},
			"category":              &graphql.Field{Type: graphql.String},
			"location":              &graphql.Field{Type: geoPointType},
			"address":               &graphql.Field{Type: graphql.String},
			"wheelchair_accessible": &graphql.Field{Type: graphql.Boolean},
			"distance":              &graphql.Field{Type: graphql.Float},
		},
	})

	geofenceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Geofence",
		Fields: graphql.Fields{
			"location":      &graphql.Field{Type: geoPointType},
			"radius_meters": &graphql.Field{Type: graphql.Float},
			"auto_trigger":  &graphql.Field{Type: graphql.Boolean},
		},
	})

	trackType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AudioTrack",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"track_id":         &graphql.Field{Type: graphql.String},
			"poi_id":           &graphql.Field{Type: graphql.String},
			"title":            &graphql.Field{Type: graphql.String},
			"language":         &graphql.Field{Type: graphql.String},
			"audio_url":        &graphql.Field{Type: graphql.String},
			"duration_seconds": &graphql.Field{Type: graphql.Int},
			"position":         &graphql.Field{Type: graphql.Int},
			"gps_location":     &graphql.Field{Type: geofenceType},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GuideSession",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"poi_id":       &graphql.Field{Type: graphql.String},
			"language":     &graphql.Field{Type: graphql.String},
			"playing":      &graphql.Field{Type: graphql.Boolean},
			"gps_disabled": &graphql.Field{Type: graphql.Boolean},
		},
	})

	triggerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TriggerEvent",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"session_id":      &graphql.Field{Type: graphql.String},
			"track_id":        &graphql.Field{Type: graphql.String},
			"track_title":     &graphql.Field{Type: graphql.String},
			"location":        &graphql.Field{Type: geoPointType},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"auto_played":     &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"pois": &graphql.Field{
				Type:        graphql.NewList(poiType),
				Description: "List all points of interest",
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					category := p.Args["category"].(string)
					return deps.POIs.List(p.Context, category)
				},
			},
			"poisNearby": &graphql.Field{
				Type:        graphql.NewList(poiType),
				Description: "Find POIs near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.POIs.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"searchPois": &graphql.Field{
				Type:        graphql.NewList(poiType),
				Description: "Search POIs by name (fuzzy matching)",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := p.Args["query"].(string)
					limit := p.Args["limit"].(int)
					return deps.POIs.Search(p.Context, q, nil, limit)
				},
			},
			"poi": &graphql.Field{
				Type:        poiType,
				Description: "Get a POI by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.POIs.GetByID(p.Context, id)
				},
			},
			"audioGuide": &graphql.Field{
				Type:        graphql.NewList(trackType),
				Description: "A POI's audio-guide playlist for a language",
				Args: graphql.FieldConfigArgument{
					"poi_id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"language": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "en"},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					poiID := p.Args["poi_id"].(string)
					language := p.Args["language"].(string)
					return deps.Guides.ListTracks(p.Context, poiID, language)
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Get a guide session by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Tours.GetSession(p.Context, id)
				},
			},
			"sessionTriggers": &graphql.Field{
				Type:        graphql.NewList(triggerType),
				Description: "Triggers fired so far in a session",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sessionID := p.Args["session_id"].(string)
					return deps.Tours.ListTriggers(p.Context, sessionID)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
