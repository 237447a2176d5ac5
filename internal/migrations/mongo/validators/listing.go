package validators

import "go.mongodb.org/mongo-driver/bson"

var intType = bson.A{"int", "long"}

var ListingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"title", "url", "url_key", "signature", "end_date", "row_index", "run_id", "imported_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":           bson.M{"bsonType": "objectId"},
			"title":         bson.M{"bsonType": "string", "maxLength": 1000},
			"url":           bson.M{"bsonType": "string", "maxLength": 4096},
			"canonical_url": bson.M{"bsonType": "string", "maxLength": 4096},
			"url_key":       bson.M{"bsonType": "string"},
			"signature":     bson.M{"bsonType": "string"},
			"end_date": bson.M{
				"bsonType": "object",
				"required": []string{"display_date", "key"},
				"properties": bson.M{
					"epoch_millis": bson.M{"bsonType": "long"},
					"display_date": bson.M{"bsonType": "string"},
					"key":          bson.M{"bsonType": "string"},
				},
			},
			"row_index":   bson.M{"bsonType": intType, "minimum": 0},
			"extra":       bson.M{"bsonType": "object"},
			"run_id":      bson.M{"bsonType": "string"},
			"imported_at": bson.M{"bsonType": "date"},
		},
	},
}

var ListingRunValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "stored", "diagnostics", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string"},
			"source":      bson.M{"bsonType": "string"},
			"options":     bson.M{"bsonType": "object"},
			"stored":      bson.M{"bsonType": intType, "minimum": 0},
			"inserted":    bson.M{"bsonType": intType, "minimum": 0},
			"updated":     bson.M{"bsonType": intType, "minimum": 0},
			"diagnostics": bson.M{"bsonType": "object"},
			"groups":      bson.M{"bsonType": "array"},
			"unreachable": bson.M{"bsonType": "array"},
			"created_at":  bson.M{"bsonType": "date"},
		},
	},
}
