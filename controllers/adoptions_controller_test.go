package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	identity "github.com/phillip/pawshome-go/identity"
	models "github.com/phillip/pawshome-go/models"
)

func samplePet(owner string) models.Pet {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	return models.Pet{
		ID:          primitive.NewObjectID(),
		Owner:       owner,
		PetName:     "Biscuit",
		PetCategory: "dog",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateAdoptionRequest(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("owner comes from the pet", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodPost, "/adoptions", CreateAdoptionRequest(env.cfg))

		pet := samplePet("owner")
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(models.PetCollection), mtest.FirstBatch, toDoc(t, pet)),
			mtest.CreateSuccessResponse(),
		)

		rec := env.do(http.MethodPost, "/adoptions", env.token(identity.Identity{Subject: "adopter", Email: "a@example.com"}),
			`{"petId":"`+pet.ID.Hex()+`","phone":"555-0100","address":"1 Main St","petOwner":"someone-else"}`)
		require.Equal(mt, http.StatusCreated, rec.Code, rec.Body.String())

		started := mt.GetAllStartedEvents()
		require.Len(mt, started, 2)
		doc := started[1].Command.Lookup("documents", "0").Document()
		assert.Equal(mt, "owner", doc.Lookup("petOwner").StringValue())
		assert.Equal(mt, "adopter", doc.Lookup("adopter").StringValue())
		assert.Equal(mt, models.AdoptionPending, doc.Lookup("status").StringValue())
	})

	mt.Run("own pet is refused", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodPost, "/adoptions", CreateAdoptionRequest(env.cfg))

		pet := samplePet("me")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(models.PetCollection), mtest.FirstBatch, toDoc(t, pet)))

		rec := env.do(http.MethodPost, "/adoptions", env.token(identity.Identity{Subject: "me"}),
			`{"petId":"`+pet.ID.Hex()+`","phone":"1","address":"x"}`)
		assert.Equal(mt, http.StatusBadRequest, rec.Code)
		assert.Len(mt, mt.GetAllStartedEvents(), 1)
	})

	mt.Run("adopted pet is a conflict", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodPost, "/adoptions", CreateAdoptionRequest(env.cfg))

		pet := samplePet("owner")
		pet.Adopted = true
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(models.PetCollection), mtest.FirstBatch, toDoc(t, pet)))

		rec := env.do(http.MethodPost, "/adoptions", env.token(identity.Identity{Subject: "adopter"}),
			`{"petId":"`+pet.ID.Hex()+`","phone":"1","address":"x"}`)
		assert.Equal(mt, http.StatusConflict, rec.Code)
	})

	mt.Run("missing fields", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodPost, "/adoptions", CreateAdoptionRequest(env.cfg))

		rec := env.do(http.MethodPost, "/adoptions", env.token(identity.Identity{Subject: "adopter"}), `{"petId":"abc"}`)
		assert.Equal(mt, http.StatusBadRequest, rec.Code)
		assert.Empty(mt, mt.GetAllStartedEvents())
	})
}

func TestDecideAdoption(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	request := func(owner string) models.AdoptionRequest {
		return models.AdoptionRequest{
			ID:       primitive.NewObjectID(),
			PetID:    primitive.NewObjectID(),
			PetOwner: owner,
			Adopter:  "adopter",
			Status:   models.AdoptionPending,
		}
	}

	mt.Run("accept marks the pet adopted", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodPatch, "/adoptions/:id/accept", AcceptAdoptionRequest(env.cfg))

		req := request("owner")
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(models.AdoptionCollection), mtest.FirstBatch, toDoc(t, req)),
			updateResponse(1, 1),
			updateResponse(1, 1),
		)

		rec := env.do(http.MethodPatch, "/adoptions/"+req.ID.Hex()+"/accept", env.token(identity.Identity{Subject: "owner"}), "")
		require.Equal(mt, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(mt, rec.Body.String(), `"status":"accepted"`)

		started := mt.GetAllStartedEvents()
		require.Len(mt, started, 3)
		assert.Equal(mt, models.AdoptionCollection, started[1].Command.Lookup("update").StringValue())
		assert.Equal(mt, models.PetCollection, started[2].Command.Lookup("update").StringValue())
		assert.Equal(mt, req.PetID, started[2].Command.Lookup("updates", "0", "q", "_id").ObjectID())
		assert.True(mt, started[2].Command.Lookup("updates", "0", "u", "$set", "adopted").Boolean())
	})

	mt.Run("reject leaves the pet alone", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodPatch, "/adoptions/:id/reject", RejectAdoptionRequest(env.cfg))

		req := request("owner")
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(models.AdoptionCollection), mtest.FirstBatch, toDoc(t, req)),
			updateResponse(1, 1),
		)

		rec := env.do(http.MethodPatch, "/adoptions/"+req.ID.Hex()+"/reject", env.token(identity.Identity{Subject: "owner"}), "")
		require.Equal(mt, http.StatusOK, rec.Code)
		assert.Len(mt, mt.GetAllStartedEvents(), 2)
	})

	mt.Run("only the owner decides", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodPatch, "/adoptions/:id/accept", AcceptAdoptionRequest(env.cfg))

		req := request("owner")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(models.AdoptionCollection), mtest.FirstBatch, toDoc(t, req)))

		rec := env.do(http.MethodPatch, "/adoptions/"+req.ID.Hex()+"/accept", env.token(identity.Identity{Subject: "adopter"}), "")
		assert.Equal(mt, http.StatusForbidden, rec.Code)
	})

	mt.Run("already decided", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodPatch, "/adoptions/:id/accept", AcceptAdoptionRequest(env.cfg))

		req := request("owner")
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(models.AdoptionCollection), mtest.FirstBatch, toDoc(t, req)),
			updateResponse(0, 0),
		)

		rec := env.do(http.MethodPatch, "/adoptions/"+req.ID.Hex()+"/accept", env.token(identity.Identity{Subject: "owner"}), "")
		assert.Equal(mt, http.StatusConflict, rec.Code)
		assert.Len(mt, mt.GetAllStartedEvents(), 2)
	})
}

func TestAdoptionListings(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("my requests filter by adopter", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodGet, "/adoptions/my-requests", MyAdoptionRequests(env.cfg))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(models.AdoptionCollection), mtest.FirstBatch))

		rec := env.do(http.MethodGet, "/adoptions/my-requests", env.token(identity.Identity{Subject: "u1"}), "")
		require.Equal(mt, http.StatusOK, rec.Code)
		assert.JSONEq(mt, `[]`, rec.Body.String())
		assert.Equal(mt, "u1", mt.GetStartedEvent().Command.Lookup("filter", "adopter").StringValue())
	})

	mt.Run("requests for my pets by status", func(mt *mtest.T) {
		env := newTestEnv(t, mt)
		env.handle(http.MethodGet, "/adoptions/for-my-pets", RequestsForMyPets(env.cfg))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(models.AdoptionCollection), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "petOwner", Value: "u1"}, {Key: "status", Value: "pending"}}))

		rec := env.do(http.MethodGet, "/adoptions/for-my-pets?status=pending", env.token(identity.Identity{Subject: "u1"}), "")
		require.Equal(mt, http.StatusOK, rec.Code)
		assert.Len(mt, decode[[]models.AdoptionRequest](t, rec), 1)

		filter := mt.GetStartedEvent().Command.Lookup("filter").Document()
		assert.Equal(mt, "u1", filter.Lookup("petOwner").StringValue())
		assert.Equal(mt, "pending", filter.Lookup("status").StringValue())
	})
}
