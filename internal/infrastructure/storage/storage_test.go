package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/spyglassmedia/spyglass/internal/infrastructure/storage"
	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
	"github.com/spyglassmedia/spyglass/pkg/logger"
)

type LocalStoreTestSuite struct {
	suite.Suite

	ctx   context.Context
	store *storage.LocalStore
}

func (suite *LocalStoreTestSuite) SetupTest() {
	suite.ctx = context.Background()

	var err error
	suite.store, err = storage.NewLocalStore(suite.T().TempDir(), logger.NewNop())
	require.NoError(suite.T(), err)
}

func (suite *LocalStoreTestSuite) TestStoreAndRetrieve() {
	// Arrange
	payload := "<?xml version=\"1.0\"?><nzb></nzb>"

	// Act
	err := suite.store.Store(suite.ctx, "42", strings.NewReader(payload))
	require.NoError(suite.T(), err)

	reader, err := suite.store.Retrieve(suite.ctx, "42")
	require.NoError(suite.T(), err)
	defer reader.Close()
	read, err := io.ReadAll(reader)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), payload, string(read))
}

func (suite *LocalStoreTestSuite) TestRetrieve_UnknownKey() {
	// Act
	_, err := suite.store.Retrieve(suite.ctx, "missing")

	// Assert
	require.Error(suite.T(), err)
	assert.True(suite.T(), pkgerrors.IsNotFound(err))
}

func (suite *LocalStoreTestSuite) TestExistsAndDelete() {
	// Arrange
	require.NoError(suite.T(), suite.store.Store(suite.ctx, "42", strings.NewReader("x")))

	// Act & Assert
	exists, err := suite.store.Exists(suite.ctx, "42")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), exists)

	require.NoError(suite.T(), suite.store.Delete(suite.ctx, "42"))

	exists, err = suite.store.Exists(suite.ctx, "42")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), exists)

	err = suite.store.Delete(suite.ctx, "42")
	assert.True(suite.T(), pkgerrors.IsNotFound(err))
}

func (suite *LocalStoreTestSuite) TestStore_Overwrites() {
	// Arrange
	require.NoError(suite.T(), suite.store.Store(suite.ctx, "42", strings.NewReader("old")))

	// Act
	require.NoError(suite.T(), suite.store.Store(suite.ctx, "42", strings.NewReader("new")))

	// Assert
	reader, err := suite.store.Retrieve(suite.ctx, "42")
	require.NoError(suite.T(), err)
	defer reader.Close()
	read, _ := io.ReadAll(reader)
	assert.Equal(suite.T(), "new", string(read))
}

func TestLocalStoreTestSuite(t *testing.T) {
	suite.Run(t, new(LocalStoreTestSuite))
}
