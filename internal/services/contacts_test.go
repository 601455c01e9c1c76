package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/e2ee"
	"messaging-service/internal/identity"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/services"
)

func newContactService() (*services.ContactService, *mocks.ContactRepositoryMock, *mocks.DirectoryMock) {
	repo := new(mocks.ContactRepositoryMock)
	dir := new(mocks.DirectoryMock)
	return services.NewContactService(repo, dir, nil, fastRetry()), repo, dir
}

func TestAddContact(t *testing.T) {
	svc, repo, _ := newContactService()
	owner, target := uuid.New(), uuid.New()

	_, err := svc.AddContact(context.Background(), owner, owner)
	require.ErrorIs(t, err, services.ErrInvalidArgument)

	repo.On("AddContact", mock.Anything, owner, target).Return(models.Contact{ID: uuid.New(), Status: models.ContactPending}, nil).Once()
	c, err := svc.AddContact(context.Background(), owner, target)
	require.NoError(t, err)
	assert.Equal(t, models.ContactPending, c.Status)

	repo.On("AddContact", mock.Anything, owner, target).Return(nil, repositories.ErrContactExists).Once()
	_, err = svc.AddContact(context.Background(), owner, target)
	require.ErrorIs(t, err, services.ErrContactExists)
}

func TestUpdateContactStatus(t *testing.T) {
	svc, repo, _ := newContactService()
	owner, contactID := uuid.New(), uuid.New()

	_, err := svc.UpdateContactStatus(context.Background(), owner, contactID, models.ContactPending)
	require.ErrorIs(t, err, services.ErrInvalidArgument)

	repo.On("UpdateStatus", mock.Anything, contactID, owner, models.ContactBlocked).Return(nil, repositories.ErrContactNotFound).Once()
	_, err = svc.UpdateContactStatus(context.Background(), owner, contactID, models.ContactBlocked)
	require.ErrorIs(t, err, services.ErrContactNotFound)
}

func TestDeleteContact(t *testing.T) {
	svc, repo, _ := newContactService()
	owner, contactID := uuid.New(), uuid.New()
	repo.On("DeleteContact", mock.Anything, contactID, owner).Return(nil).Once()

	require.NoError(t, svc.DeleteContact(context.Background(), owner, contactID))
	repo.AssertExpectations(t)
}

func TestListContactsFailsOpen(t *testing.T) {
	svc, repo, _ := newContactService()
	owner := uuid.New()
	repo.On("ListContacts", mock.Anything, owner, models.ContactStatus("")).Return(nil, assert.AnError)

	contacts, err := svc.ListContacts(context.Background(), owner, "")
	require.NoError(t, err)
	assert.Empty(t, contacts)

	_, err = svc.ListContacts(context.Background(), owner, "friends")
	require.ErrorIs(t, err, services.ErrInvalidArgument)
}

func TestFindUserByEmail(t *testing.T) {
	svc, _, dir := newContactService()
	caller := uuid.New()
	key := "a2V5"
	dir.On("FindUserByEmail", mock.Anything, "bob@example.com").Return(models.UserProfile{ID: uuid.New(), PublicKey: &key}, nil).Once()
	dir.On("FindUserByEmail", mock.Anything, "nobody@example.com").Return(nil, identity.ErrUserNotFound).Once()

	user, err := svc.FindUserByEmail(context.Background(), caller, " BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, e2ee.PublicKeyAlgorithm, user.PublicKeyAlgorithm)

	_, err = svc.FindUserByEmail(context.Background(), caller, "nobody@example.com")
	require.ErrorIs(t, err, services.ErrUserNotFound)
	dir.AssertExpectations(t)
}

func TestStorePublicKey(t *testing.T) {
	repo := new(mocks.KeyRepositoryMock)
	svc := services.NewKeyService(repo)
	user := uuid.New()

	_, err := svc.StorePublicKey(context.Background(), user, "bm90IGEga2V5")
	require.ErrorIs(t, err, services.ErrInvalidArgument)

	kp, err := e2ee.GenerateKeyPair()
	require.NoError(t, err)
	repo.On("StorePublicKey", mock.Anything, user, kp.PublicKey(), e2ee.PublicKeyAlgorithm).Return(int64(3), nil).Once()

	updated, err := svc.StorePublicKey(context.Background(), user, kp.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)
	repo.AssertExpectations(t)
}
